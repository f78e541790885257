// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC audio via github.com/tphakala/flac.
//
// Samples of 8, 16, 24 and 32 bits are supported and normalized to
// [-1, 1).
package flac
