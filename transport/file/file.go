// SPDX-License-Identifier: EPL-2.0

// Package file feeds a receiver from an audio file. The file is decoded
// through an audio.Registry and cut into planar frames, optionally paced
// at the speed it would arrive from a live sender.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/formats"
	"github.com/ik5/audrx/receiver"
)

var ErrInvalidSource = errors.New("invalid audio source")

// Options controls how a file is turned into frames.
type Options struct {
	// FrameSamples is the number of samples per channel in each frame.
	// Zero means 20 ms at the file rate.
	FrameSamples int

	// Paced releases frames no faster than real time.
	Paced bool

	// Loop restarts the file at the end instead of reporting io.EOF.
	Loop bool

	// Metadata is attached to every frame.
	Metadata string

	// Registry resolves the decoder from the file extension. The bundled
	// formats are used when nil.
	Registry *audio.Registry

	Logger *slog.Logger
}

// Transport implements receiver.Transport over an audio.Source.
type Transport struct {
	opts   Options
	reopen func() (audio.Source, io.Closer, error)

	src    audio.Source
	closer io.Closer

	channels int
	rate     int
	samples  int
	scratch  []float32

	start time.Time
	sent  time.Duration
	timer *time.Timer

	mu   sync.Mutex
	free []*receiver.Frame
	done bool
}

// New wraps an already opened source. Loop is ignored since the source
// cannot be rewound.
func New(src audio.Source, opts Options) (*Transport, error) {
	opts.Loop = false
	return newTransport(src, nil, nil, opts)
}

// Open decodes the file at path.
func Open(path string, opts Options) (*Transport, error) {
	reg := opts.Registry
	if reg == nil {
		reg = formats.NewRegistry()
	}

	open := func() (audio.Source, io.Closer, error) {
		dec, err := reg.ForPath(path)
		if err != nil {
			return nil, nil, err
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}

		src, err := dec.Decode(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, fmt.Errorf("decode %s: %w", path, err)
		}

		return src, f, nil
	}

	src, closer, err := open()
	if err != nil {
		return nil, err
	}

	return newTransport(src, closer, open, opts)
}

// Dialer returns a receiver.Dialer that opens path on every dial.
func Dialer(path string, opts Options) receiver.Dialer {
	return func(context.Context) (receiver.Transport, error) {
		return Open(path, opts)
	}
}

func newTransport(src audio.Source, closer io.Closer, reopen func() (audio.Source, io.Closer, error), opts Options) (*Transport, error) {
	if src.Channels() <= 0 || src.SampleRate() <= 0 {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidSource, src.Channels(), src.SampleRate())
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FrameSamples <= 0 {
		opts.FrameSamples = max(src.SampleRate()/50, 1)
	}

	t := &Transport{
		opts:     opts,
		reopen:   reopen,
		src:      src,
		closer:   closer,
		channels: src.Channels(),
		rate:     src.SampleRate(),
		samples:  opts.FrameSamples,
		scratch:  make([]float32, opts.FrameSamples*src.Channels()),
	}

	return t, nil
}

// SampleRate is the rate of the decoded file.
func (t *Transport) SampleRate() int { return t.rate }

// Channels is the channel count of the decoded file.
func (t *Transport) Channels() int { return t.channels }

// Capture returns the next frame. In paced mode it waits until the frame
// is due and returns nil when that is further away than timeout.
func (t *Transport) Capture(ctx context.Context, timeout time.Duration) (*receiver.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done {
		return nil, io.EOF
	}

	if t.opts.Paced {
		ready, err := t.wait(ctx, timeout)
		if !ready || err != nil {
			return nil, err
		}
	}

	n, err := t.fill()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}

	f := t.frame(n)
	audio.Deinterleave(f.Data, t.scratch[:n*t.channels], t.channels)
	f.Timestamp = t.sent
	t.sent += f.Duration()

	return f, nil
}

// wait sleeps until the next frame is due, at most timeout.
func (t *Transport) wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if t.start.IsZero() {
		t.start = time.Now()
		return true, nil
	}

	delay := time.Until(t.start.Add(t.sent))
	if delay <= 0 {
		return true, nil
	}

	ready := delay <= timeout
	delay = min(delay, timeout)

	if t.timer == nil {
		t.timer = time.NewTimer(delay)
	} else {
		t.timer.Reset(delay)
	}

	select {
	case <-ctx.Done():
		t.timer.Stop()
		return false, ctx.Err()
	case <-t.timer.C:
		return ready, nil
	}
}

// fill reads up to one frame of interleaved samples into scratch and
// returns the number of samples per channel read.
func (t *Transport) fill() (int, error) {
	want := t.samples * t.channels
	got := 0
	restarted := false

	for got < want {
		n, err := t.src.ReadSamples(t.scratch[got:want])
		got += n - n%t.channels

		if err == nil {
			if n == 0 {
				break
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read samples: %w", err)
		}

		if !t.opts.Loop || t.reopen == nil || restarted {
			t.mu.Lock()
			t.done = got == 0
			t.mu.Unlock()
			break
		}

		if err := t.rewind(); err != nil {
			return 0, err
		}
		restarted = true
	}

	return got / t.channels, nil
}

func (t *Transport) rewind() error {
	src, closer, err := t.reopen()
	if err != nil {
		return fmt.Errorf("restart file: %w", err)
	}
	if src.Channels() != t.channels {
		_ = closer.Close()
		return fmt.Errorf("%w: channel count changed on restart", ErrInvalidSource)
	}

	t.closeSource()
	t.src, t.closer = src, closer
	t.opts.Logger.Debug("file restarted")

	return nil
}

func (t *Transport) frame(samples int) *receiver.Frame {
	t.mu.Lock()
	var f *receiver.Frame
	if n := len(t.free); n > 0 {
		f = t.free[n-1]
		t.free = t.free[:n-1]
	}
	t.mu.Unlock()

	if f == nil {
		f = &receiver.Frame{}
	}

	size := samples * t.channels
	if cap(f.Data) < size {
		f.Data = make([]float32, size)
	}
	f.Data = f.Data[:size]
	f.SampleRate = t.rate
	f.Channels = t.channels
	f.SamplesPerChannel = samples
	f.Metadata = t.opts.Metadata

	return f
}

// Release returns f to the frame pool.
func (t *Transport) Release(f *receiver.Frame) {
	if f == nil {
		return
	}

	t.mu.Lock()
	t.free = append(t.free, f)
	t.mu.Unlock()
}

// Close releases the decoder and the file.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}

	return t.closeSource()
}

func (t *Transport) closeSource() error {
	var errs []error
	if t.src != nil {
		errs = append(errs, t.src.Close())
	}
	if t.closer != nil {
		errs = append(errs, t.closer.Close())
	}
	t.src, t.closer = nil, nil

	return errors.Join(errs...)
}
