// SPDX-License-Identifier: EPL-2.0

package audio

// Peak returns the largest absolute sample value in samples.
func Peak(samples []float32) float32 {
	var peak float32
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	return peak
}

// PeakInterleaved stores the per-channel peak of interleaved samples in
// levels. Channels beyond len(levels) are ignored.
func PeakInterleaved(levels, samples []float32, channels int) {
	clear(levels)
	if channels <= 0 {
		return
	}

	n := min(len(levels), channels)
	for i := 0; i+channels <= len(samples); i += channels {
		for c := range n {
			v := samples[i+c]
			if v < 0 {
				v = -v
			}
			if v > levels[c] {
				levels[c] = v
			}
		}
	}
}

// PeakStrided returns the peak of every stride-th sample starting at offset.
func PeakStrided(samples []float32, offset, stride int) float32 {
	if stride <= 0 {
		return 0
	}

	var peak float32
	for i := offset; i < len(samples); i += stride {
		v := samples[i]
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	return peak
}
