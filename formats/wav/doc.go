// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and encodes WAV files on top of github.com/go-audio/wav.
//
// Decoder accepts integer PCM at 8, 16, 24 or 32 bits with any channel count
// and sample rate. Samples come out as float32 in [-1, 1]. Inputs that are
// not seekable are buffered in memory first.
//
//	src, err := wav.Decoder{}.Decode(file)
//
// Encode writes interleaved int16 samples with any channel count:
//
//	err := wav.Encode(out, 48000, 6, samples)
package wav
