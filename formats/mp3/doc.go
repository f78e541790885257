// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1 Layer III audio via github.com/hajimehoshi/go-mp3.
//
// The decoder always yields two interleaved channels at the stream's
// sample rate; mono files are duplicated by go-mp3 itself.
package mp3
