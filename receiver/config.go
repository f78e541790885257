// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"errors"
	"fmt"
	"time"

	"github.com/ik5/audrx/speaker"
)

const (
	// DefaultPollTimeout bounds a single Capture call of the producer.
	DefaultPollTimeout = 10 * time.Millisecond

	// DefaultRetryDelay is the pause between failed transport dials.
	DefaultRetryDelay = 100 * time.Millisecond
)

// Config holds the receiver settings. Buffer sizes count samples per
// channel at SampleRate.
type Config struct {
	SampleRate       int
	MaxBufferSamples int
	MinBufferSamples int

	// DeviceChannels is the channel count of the output device. A source
	// with the same count and no speaker metadata is played through.
	DeviceChannels int

	CreateVirtualSpeakers bool
	SpeakerDistance       float32

	PollTimeout time.Duration
	RetryDelay  time.Duration
}

// DefaultConfig returns a stereo configuration buffering between 100 ms and
// 200 ms of audio at sampleRate.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:            sampleRate,
		MaxBufferSamples:      sampleRate / 5,
		MinBufferSamples:      sampleRate / 10,
		DeviceChannels:        2,
		CreateVirtualSpeakers: true,
		SpeakerDistance:       speaker.DefaultDistance,
		PollTimeout:           DefaultPollTimeout,
		RetryDelay:            DefaultRetryDelay,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate))
	}
	if c.MaxBufferSamples < 0 {
		errs = append(errs, fmt.Errorf("%w: max buffer samples %d", ErrInvalidConfig, c.MaxBufferSamples))
	}
	if c.MinBufferSamples < 0 {
		errs = append(errs, fmt.Errorf("%w: min buffer samples %d", ErrInvalidConfig, c.MinBufferSamples))
	}
	if maxSamples := c.maxSamples(); maxSamples > 0 && c.MinBufferSamples > maxSamples {
		errs = append(errs, fmt.Errorf("%w: min buffer samples %d above max %d",
			ErrInvalidConfig, c.MinBufferSamples, maxSamples))
	}
	if c.DeviceChannels < 0 {
		errs = append(errs, fmt.Errorf("%w: device channels %d", ErrInvalidConfig, c.DeviceChannels))
	}
	if c.SpeakerDistance < 0 {
		errs = append(errs, fmt.Errorf("%w: speaker distance %g", ErrInvalidConfig, c.SpeakerDistance))
	}
	if c.PollTimeout < 0 || c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: negative timeout", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// maxSamples is MaxBufferSamples, or rate/5 when unset.
func (c Config) maxSamples() int {
	if c.MaxBufferSamples == 0 {
		return c.SampleRate / 5
	}

	return c.MaxBufferSamples
}

// withDefaults fills zero fields from the sample rate. Min is clamped to
// Max.
func (c Config) withDefaults() Config {
	c.MaxBufferSamples = c.maxSamples()
	if c.MinBufferSamples == 0 {
		c.MinBufferSamples = c.SampleRate / 10
	}
	c.MinBufferSamples = min(c.MinBufferSamples, c.MaxBufferSamples)
	if c.SpeakerDistance == 0 {
		c.SpeakerDistance = speaker.DefaultDistance
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}

	return c
}

// BufferedDuration converts a per-channel sample count at the configured
// rate into a duration.
func (c Config) BufferedDuration(samples int) time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}

	return time.Duration(int64(samples) * int64(time.Second) / int64(c.SampleRate))
}
