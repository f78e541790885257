// SPDX-License-Identifier: EPL-2.0

// Package audio provides low-level audio processing primitives.
//
// Streams are pulled through the Source interface; decoders in the formats
// subpackages produce Sources and processors wrap them:
//
//	resampler := audio.NewResampler(source, 48000)
//	mono := audio.NewMonoMixer(resampler)
//	n, err := mono.ReadSamples(buf)
//
// # Block helpers
//
// The receiver works on fixed blocks rather than streams. Interleave,
// Deinterleave, Remap and UpMix move samples between planar and interleaved
// layouts without allocating, and ResampleLinear converts a single planar
// channel between rates. UpMix takes an UpMixMode:
//
//   - UpMixDuplicate writes a sample into every slot of the output frame.
//   - UpMixSpatial writes only the slot channel%outChannels.
//
// Peak and PeakInterleaved compute VU levels as peak absolute values.
//
// # Format Registry
//
// Registry maps format keys to decoders. Keys are case-insensitive and a
// leading dot is ignored, so Registry.ForPath can pick a decoder from a file
// name.
//
// # Sample Format
//
// Audio samples are float32 in the range [-1.0, 1.0].
package audio
