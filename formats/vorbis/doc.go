// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams using github.com/jfreymuth/oggvorbis.
//
// Any channel count the stream declares is passed through, so 5.1 and 7.1
// Vorbis files reach the receiver with their full layout.
package vorbis
