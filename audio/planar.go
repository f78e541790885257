// SPDX-License-Identifier: EPL-2.0

package audio

import "github.com/ik5/audrx/utils"

// Interleave writes samples frames of planar data (channel c at
// planar[c*samples:(c+1)*samples]) into dst as interleaved frames.
func Interleave(dst, planar []float32, channels, samples int) {
	InterleaveRange(dst, channels, planar, channels, samples, 0, samples)
}

// InterleaveRange writes n frames taken from offset start of each planar
// channel (stride samples apart) into dst, outChannels wide. Source channels
// beyond outChannels are dropped and missing ones are written as silence.
func InterleaveRange(dst []float32, outChannels int, planar []float32, srcChannels, stride, start, n int) {
	if outChannels <= 0 || n <= 0 {
		return
	}

	shared := min(outChannels, srcChannels)
	for c := range shared {
		plane := planar[c*stride+start : c*stride+start+n]
		for i, v := range plane {
			dst[i*outChannels+c] = v
		}
	}

	for c := shared; c < outChannels; c++ {
		for i := range n {
			dst[i*outChannels+c] = 0
		}
	}
}

// Deinterleave splits interleaved src into planar dst and returns the number
// of samples per channel written. A trailing partial frame is ignored.
func Deinterleave(dst, src []float32, channels int) int {
	if channels <= 0 {
		return 0
	}

	samples := min(len(src)/channels, len(dst)/channels)
	for i := range samples {
		base := i * channels
		for c := range channels {
			dst[c*samples+i] = src[base+c]
		}
	}

	return samples
}

// Remap copies interleaved frames from src (srcChannels wide) into dst
// (dstChannels wide). Extra source channels are dropped, missing ones are
// silent. Returns the number of frames copied.
func Remap(dst []float32, dstChannels int, src []float32, srcChannels int) int {
	if dstChannels <= 0 || srcChannels <= 0 {
		return 0
	}

	frames := min(len(dst)/dstChannels, len(src)/srcChannels)
	shared := min(dstChannels, srcChannels)

	for f := range frames {
		out := dst[f*dstChannels : (f+1)*dstChannels]
		copy(out, src[f*srcChannels:f*srcChannels+shared])
		clear(out[shared:])
	}

	return frames
}

// UpMix writes the mono samples of src into interleaved dst starting at frame
// zero. In UpMixDuplicate mode every slot of the frame receives the sample;
// in UpMixSpatial mode only slot channel%outChannels is written.
func UpMix(dst, src []float32, channel, outChannels int, mode UpMixMode) {
	if outChannels <= 1 {
		copy(dst, src)
		return
	}

	if mode == UpMixSpatial {
		slot := channel % outChannels
		for i, v := range src {
			dst[i*outChannels+slot] = v
		}
		return
	}

	for i, v := range src {
		frame := dst[i*outChannels : (i+1)*outChannels]
		for j := range frame {
			frame[j] = v
		}
	}
}

// SilenceFrames zeroes frames starting at frame index from. In spatial mode
// only the target slot is cleared.
func SilenceFrames(dst []float32, from, channel, outChannels int, mode UpMixMode) {
	if outChannels <= 1 {
		clear(dst[from:])
		return
	}

	if mode == UpMixSpatial {
		slot := channel % outChannels
		for i := from * outChannels; i+slot < len(dst); i += outChannels {
			dst[i+slot] = 0
		}
		return
	}

	clear(dst[from*outChannels:])
}

// ResampledLength is the number of samples a channel of n samples has after
// conversion from srcRate to dstRate.
func ResampledLength(n, srcRate, dstRate int) int {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate {
		return n
	}

	return int(int64(n) * int64(dstRate) / int64(srcRate))
}

// ResampleLinear fills dst with src converted from srcRate to dstRate by
// linear interpolation. Output sample i reads source position
// i*srcRate/dstRate; the upper neighbour is clamped to the last sample.
func ResampleLinear(dst, src []float32, srcRate, dstRate int) {
	if len(src) == 0 {
		clear(dst)
		return
	}

	if srcRate == dstRate {
		copy(dst, src)
		return
	}

	step := float64(srcRate) / float64(dstRate)
	last := len(src) - 1

	for i := range dst {
		pos := float64(i) * step
		lower := int(pos)
		if lower >= last {
			dst[i] = src[last]
			continue
		}

		dst[i] = utils.Lerp(src[lower], src[lower+1], float32(pos-float64(lower)))
	}
}
