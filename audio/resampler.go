// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audrx/utils"
)

// Resampler streams from src to a target sample rate using linear
// interpolation between neighbouring frames. Works on interleaved samples
// and preserves the channel count.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	cur, next []float32
	hasCur    bool
	hasNext   bool

	// Fractional position between cur and next.
	pos float64

	srcBuf []float32
	srcLen int
	srcIdx int
	eof    bool
	err    error
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := max(src.Channels(), 1)

	size := max(src.BufSize(), 256*channels)
	size -= size % channels

	return &Resampler{
		src:      src,
		dstRate:  dstRate,
		ratio:    float64(src.SampleRate()) / float64(dstRate),
		channels: channels,
		cur:      make([]float32, channels),
		next:     make([]float32, channels),
		srcBuf:   make([]float32, size),
	}
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// readFrame copies the next source frame into dst.
func (r *Resampler) readFrame(dst []float32) bool {
	for r.srcIdx >= r.srcLen {
		if r.eof || r.err != nil {
			return false
		}

		n, err := r.src.ReadSamples(r.srcBuf)
		r.srcLen = n - n%r.channels
		r.srcIdx = 0

		switch {
		case errors.Is(err, io.EOF):
			r.eof = true
		case err != nil:
			r.err = fmt.Errorf("%w", err)
		}

		if r.srcLen == 0 && (r.eof || r.err != nil) {
			return false
		}
	}

	copy(dst, r.srcBuf[r.srcIdx:r.srcIdx+r.channels])
	r.srcIdx += r.channels

	return true
}

// advance shifts next into cur and fetches a new next frame. At the end of
// the stream next mirrors cur so the last frame is held, not faded.
func (r *Resampler) advance() bool {
	if !r.hasNext {
		r.hasCur = false
		return false
	}

	copy(r.cur, r.next)
	r.hasNext = r.readFrame(r.next)
	if !r.hasNext {
		copy(r.next, r.cur)
	}

	return true
}

func (r *Resampler) finish(written int) (int, error) {
	if r.err != nil {
		return written * r.channels, r.err
	}

	return written * r.channels, io.EOF
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of r.channels.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if r.ratio == 1 {
		return r.src.ReadSamples(dst)
	}

	if !r.hasCur {
		if r.eof || r.err != nil {
			return r.finish(0)
		}

		if !r.readFrame(r.cur) {
			return r.finish(0)
		}
		r.hasCur = true

		r.hasNext = r.readFrame(r.next)
		if !r.hasNext {
			copy(r.next, r.cur)
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if !r.advance() {
				return r.finish(written)
			}
		}

		alpha := float32(r.pos)
		base := written * r.channels
		for c := range r.channels {
			dst[base+c] = utils.Lerp(r.cur[c], r.next[c], alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
