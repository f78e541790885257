// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"testing"

	"github.com/ik5/audrx/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(44100, 2, 100)
	r := NewResampler(src, 16000)

	assert.Equal(t, 16000, r.SampleRate())
	assert.Equal(t, 2, r.Channels())
	assert.Equal(t, src.BufSize(), r.BufSize())
}

func TestResampler_SameRate(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 1, 50, audiotest.Ramp(0.01))
	out, err := audiotest.ReadAll(NewResampler(src, 8000), 16)
	require.NoError(t, err)

	require.Len(t, out, 50)
	for i, v := range out {
		assert.InDelta(t, float32(i)*0.01, v, 1e-6)
	}
}

func TestResampler_Lengths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		srcRate  int
		dstRate  int
		channels int
		samples  int
	}{
		{name: "44.1k to 8k", srcRate: 44100, dstRate: 8000, channels: 2, samples: 44100},
		{name: "48k to 16k", srcRate: 48000, dstRate: 16000, channels: 1, samples: 48000},
		{name: "8k to 16k", srcRate: 8000, dstRate: 16000, channels: 2, samples: 8000},
		{name: "22.05k to 48k", srcRate: 22050, dstRate: 48000, channels: 6, samples: 22050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSineSource(tt.srcRate, tt.channels, tt.samples, 440)
			out, err := audiotest.ReadAll(NewResampler(src, tt.dstRate), 1024*tt.channels)
			require.NoError(t, err)

			frames := len(out) / tt.channels
			assert.Zero(t, len(out)%tt.channels)
			assert.InDelta(t, tt.dstRate, frames, float64(tt.dstRate)/100)
		})
	}
}

func TestResampler_LinearUpsample(t *testing.T) {
	t.Parallel()

	// 0, 0.1, 0.2 ... doubled should land on the midpoints.
	src := audiotest.NewMockSource(8000, 1, 4, audiotest.Ramp(0.1))
	out, err := audiotest.ReadAll(NewResampler(src, 16000), 64)
	require.NoError(t, err)

	want := []float32{0, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.3}
	require.Len(t, out, len(want))
	for i := range want {
		assert.InDelta(t, want[i], out[i], 1e-6, "sample %d", i)
	}
}

func TestResampler_StereoPreserved(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(44100, 2, 4410, audiotest.ChannelMarker())
	out, err := audiotest.ReadAll(NewResampler(src, 8000), 512)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	for i := 0; i < len(out); i += 2 {
		assert.InDelta(t, 0.1, out[i], 1e-6)
		assert.InDelta(t, 0.2, out[i+1], 1e-6)
	}
}

func TestResampler_EOF(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 1, 0), 8000)
	buf := make([]float32, 64)

	n, err := r.ReadSamples(buf)
	assert.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)

	n, err = r.ReadSamples(buf)
	assert.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestResampler_InvalidDstSize(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 2, 100), 8000)
	_, err := r.ReadSamples(make([]float32, 3))
	require.ErrorIs(t, err, ErrInvalidDstSize)
}

func TestResampler_Close(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(44100, 2, 100)
	require.NoError(t, NewResampler(src, 8000).Close())
	assert.True(t, src.Closed())
}

func TestResampler_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	src := audiotest.NewSineSource(48000, 2, 1<<30, 440)
	r := NewResampler(src, 44100)
	buf := make([]float32, 1024)

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = r.ReadSamples(buf)
	})

	assert.Zero(t, allocs)
}

func BenchmarkResampler_Downsample(b *testing.B) {
	buf := make([]float32, 4096)
	b.ReportAllocs()

	for b.Loop() {
		r := NewResampler(audiotest.NewSineSource(44100, 2, 44100, 440), 8000)
		for {
			if _, err := r.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
