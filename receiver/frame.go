// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"fmt"
	"time"
)

// Frame is one block of audio as delivered by a Transport. Data is planar:
// channel c occupies Data[c*SamplesPerChannel:(c+1)*SamplesPerChannel].
// A frame is only valid until it is handed back with Transport.Release.
type Frame struct {
	SampleRate        int
	Channels          int
	SamplesPerChannel int
	Data              []float32
	Metadata          string
	Timestamp         time.Duration
}

// Plane returns the samples of channel c.
func (f *Frame) Plane(c int) []float32 {
	return f.Data[c*f.SamplesPerChannel : (c+1)*f.SamplesPerChannel]
}

// Duration is the playback length of the frame at its own rate.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}

	return time.Duration(int64(f.SamplesPerChannel) * int64(time.Second) / int64(f.SampleRate))
}

// Validate checks the frame shape.
func (f *Frame) Validate() error {
	switch {
	case f == nil:
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	case f.Channels <= 0:
		return fmt.Errorf("%w: %d channels", ErrInvalidFrame, f.Channels)
	case f.SamplesPerChannel <= 0:
		return fmt.Errorf("%w: %d samples per channel", ErrInvalidFrame, f.SamplesPerChannel)
	case len(f.Data) < f.Channels*f.SamplesPerChannel:
		return fmt.Errorf("%w: %d samples for %dx%d", ErrInvalidFrame, len(f.Data), f.Channels, f.SamplesPerChannel)
	}

	return nil
}
