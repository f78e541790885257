// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds deterministic sample generators shared by tests.
// It deliberately imports nothing from this module so that any package's
// internal tests can use it.
package audiotest

import (
	"errors"
	"io"
	"math"
)

// Waveform returns the value of sample index i on channel ch.
type Waveform func(i, ch int) float32

// MockSource generates interleaved audio. It satisfies audio.Source.
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // per channel
	generated    int // per channel
	waveform     Waveform
	closed       bool
}

// NewMockSource creates a new mock audio source. totalSamples counts samples
// per channel.
func NewMockSource(sampleRate, channels, totalSamples int, waveform Waveform) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		waveform:     waveform,
	}
}

// NewSilentSource creates a mock source that generates silence.
func NewSilentSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, Constant(0))
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, Sine(sampleRate, frequency))
}

// NewConstantSource creates a mock source with constant value.
func NewConstantSource(sampleRate, channels, totalSamples int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, Constant(value))
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed }

// Reset rewinds the source.
func (m *MockSource) Reset() {
	m.generated = 0
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	framesToWrite := min(len(dst)/m.channels, m.totalSamples-m.generated)

	for frame := range framesToWrite {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(sampleIndex, ch)
		}
	}

	m.generated += framesToWrite
	samplesWritten := framesToWrite * m.channels

	if m.generated >= m.totalSamples {
		return samplesWritten, io.EOF
	}

	return samplesWritten, nil
}

// Constant is a flat waveform.
func Constant(v float32) Waveform {
	return func(int, int) float32 { return v }
}

// Sine is a sine wave of frequency Hz, identical on every channel.
func Sine(sampleRate int, frequency float64) Waveform {
	return func(i, _ int) float32 {
		t := float64(i) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	}
}

// ChannelMarker yields (ch+1)/10 on channel ch, handy for checking that
// samples landed in the right slot.
func ChannelMarker() Waveform {
	return func(_, ch int) float32 { return float32(ch+1) / 10 }
}

// Ramp yields i*step on every channel.
func Ramp(step float32) Waveform {
	return func(i, _ int) float32 { return float32(i) * step }
}

// Planar builds a planar block: channel c occupies
// out[c*samples:(c+1)*samples].
func Planar(channels, samples int, w Waveform) []float32 {
	out := make([]float32, channels*samples)
	for c := range channels {
		for i := range samples {
			out[c*samples+i] = w(i, c)
		}
	}

	return out
}

// Interleaved builds an interleaved block of samples frames.
func Interleaved(channels, samples int, w Waveform) []float32 {
	out := make([]float32, channels*samples)
	for i := range samples {
		for c := range channels {
			out[i*channels+c] = w(i, c)
		}
	}

	return out
}

type sampleReader interface {
	ReadSamples(dst []float32) (int, error)
}

// ReadAll drains r with a buffer of bufSize samples.
func ReadAll(r sampleReader, bufSize int) ([]float32, error) {
	var out []float32
	buf := make([]float32, bufSize)

	for {
		n, err := r.ReadSamples(buf)
		out = append(out, buf[:n]...)

		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}
