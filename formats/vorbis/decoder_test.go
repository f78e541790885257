// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ik5/audrx/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedOgg struct {
	rate     int
	channels int
	data     []float32
	err      error
}

func (m *scriptedOgg) SampleRate() int { return m.rate }
func (m *scriptedOgg) Channels() int   { return m.channels }

func (m *scriptedOgg) Read(p []float32) (int, error) {
	if len(m.data) == 0 {
		if m.err != nil {
			return 0, m.err
		}
		return 0, io.EOF
	}

	n := copy(p, m.data)
	n -= n % m.channels
	m.data = m.data[n:]

	return n, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("OggS but not really")))
	require.ErrorIs(t, err, ErrNotVorbisStream)
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		frames   int
		buf      int
	}{
		{name: "mono", channels: 1, frames: 100, buf: 16},
		{name: "stereo", channels: 2, frames: 100, buf: 15},
		{name: "7.1", channels: 8, frames: 50, buf: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := audiotest.Interleaved(tt.channels, tt.frames, audiotest.ChannelMarker())
			src := &source{dec: &scriptedOgg{rate: 48000, channels: tt.channels, data: data}}

			assert.Equal(t, tt.channels, src.Channels())
			assert.Equal(t, 48000, src.SampleRate())

			got, err := audiotest.ReadAll(src, tt.buf)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestSource_ReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("bad page")
	src := &source{dec: &scriptedOgg{rate: 44100, channels: 2, err: boom}}

	_, err := src.ReadSamples(make([]float32, 8))
	require.ErrorIs(t, err, boom)
}

func TestSource_ShortBuffer(t *testing.T) {
	t.Parallel()

	src := &source{dec: &scriptedOgg{rate: 44100, channels: 6, data: make([]float32, 12)}}

	n, err := src.ReadSamples(make([]float32, 5))
	assert.Zero(t, n)
	assert.NoError(t, err)
}
