// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"context"
	"errors"
	"io"
)

// OfflineSource drives a Receiver synchronously from a Transport and reads
// its passthrough output as an audio.Source. It is meant for rendering
// files faster than real time: frames are polled only when the buffer
// cannot serve a block. When the transport ends, silence is fed until the
// buffered tail has played, so the output ends with a short run of
// silence.
type OfflineSource struct {
	ctx      context.Context
	r        *Receiver
	t        Transport
	channels int
	bufSize  int

	eof     bool
	tail    int
	silence Frame
}

// NewOfflineSource returns a source producing channels interleaved channels
// at the receiver sample rate.
func NewOfflineSource(ctx context.Context, r *Receiver, t Transport, channels int) *OfflineSource {
	return &OfflineSource{
		ctx:      ctx,
		r:        r,
		t:        t,
		channels: max(channels, 1),
		bufSize:  4096,
	}
}

func (s *OfflineSource) SampleRate() int { return s.r.cfg.SampleRate }
func (s *OfflineSource) Channels() int   { return s.channels }
func (s *OfflineSource) BufSize() int    { return s.bufSize }

// ReadSamples fills dst with whole interleaved frames. A read returns at
// most the minimum buffer size in frames.
func (s *OfflineSource) ReadSamples(dst []float32) (int, error) {
	frames := min(len(dst)/s.channels, s.r.cfg.MinBufferSamples)
	if frames == 0 {
		return 0, nil
	}
	dst = dst[:frames*s.channels]

	for {
		if err := s.ctx.Err(); err != nil {
			return 0, err
		}

		if s.r.PullPassthroughBlock(dst, s.channels) {
			return len(dst), nil
		}

		if s.eof {
			if s.tail <= 0 {
				return 0, io.EOF
			}
			s.r.Ingest(s.silenceFrame(frames))
			s.tail -= frames

			continue
		}

		err := s.r.Poll(s.ctx, s.t)
		if errors.Is(err, io.EOF) {
			s.eof = true
			s.tail = s.r.cfg.MinBufferSamples + 3*frames
			continue
		}
		if err != nil {
			return 0, err
		}
	}
}

func (s *OfflineSource) silenceFrame(samples int) *Frame {
	channels := max(s.r.SourceChannels(), 1)
	if n := channels * samples; cap(s.silence.Data) < n {
		s.silence.Data = make([]float32, n)
	} else {
		s.silence.Data = s.silence.Data[:n]
	}

	s.silence.SampleRate = s.r.cfg.SampleRate
	s.silence.Channels = channels
	s.silence.SamplesPerChannel = samples

	return &s.silence
}

// Close closes the transport.
func (s *OfflineSource) Close() error {
	return s.t.Close()
}
