// SPDX-License-Identifier: EPL-2.0

package audrx_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/audrx"
	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/formats/wav"
	"github.com/ik5/audrx/internal/audiotest"
	"github.com/ik5/audrx/receiver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(tb testing.TB, rate, channels int, samples []int16) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "in.wav")
	f, err := os.Create(path)
	require.NoError(tb, err)
	require.NoError(tb, wav.Encode(f, rate, channels, samples))
	require.NoError(tb, f.Close())

	return path
}

func constant(n int, v int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRender_PlaysWholeFile(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, 48000, 1, constant(24000, 8192))

	src, err := audrx.Render(context.Background(), path, receiver.DefaultConfig(48000), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, src.Channels())
	assert.Equal(t, 48000, src.SampleRate())

	pcm, err := audrx.Collect16(src, 960)
	require.NoError(t, err)
	require.NoError(t, src.Close())

	require.GreaterOrEqual(t, len(pcm), 24000)
	for i, v := range pcm[:24000] {
		require.InDelta(t, 8192, v, 1, "sample %d", i)
	}
	for i, v := range pcm[24000:] {
		require.Zero(t, v, "tail sample %d", i)
	}
}

func TestRender_WidensToRequestedChannels(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, 48000, 1, constant(9600, 8192))

	src, err := audrx.Render(context.Background(), path, receiver.DefaultConfig(48000), 2)
	require.NoError(t, err)
	defer src.Close()

	pcm, err := audrx.Collect16(src, 2*480)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pcm), 2*9600)

	// Passthrough keeps channel 0 and silences the missing right channel.
	assert.InDelta(t, 8192, pcm[0], 1)
	assert.Zero(t, pcm[1])
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	_, err := audrx.Render(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), receiver.DefaultConfig(48000), 0)
	require.ErrorIs(t, err, os.ErrNotExist)

	path := writeWAV(t, 48000, 1, constant(960, 0))
	_, err = audrx.Render(context.Background(), path, receiver.Config{}, 0)
	require.ErrorIs(t, err, receiver.ErrInvalidConfig)
}

func TestRenderToMono16_Resamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		srcRate int
		dstRate int
	}{
		{name: "44.1kHz to 8kHz", srcRate: 44100, dstRate: 8000},
		{name: "48kHz to 16kHz", srcRate: 48000, dstRate: 16000},
		{name: "22.05kHz to 48kHz", srcRate: 22050, dstRate: 48000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// One second of stereo audio.
			path := writeWAV(t, tt.srcRate, 2, constant(2*tt.srcRate, 4096))

			pcm, rate, err := audrx.RenderToMono16(context.Background(), path, receiver.DefaultConfig(48000), tt.dstRate, 4096)
			require.NoError(t, err)
			assert.Equal(t, tt.dstRate, rate)

			tolerance := tt.dstRate / 20
			require.GreaterOrEqual(t, len(pcm), tt.dstRate-tolerance)
			assert.InDelta(t, 4096, pcm[tt.dstRate/2], 2)
		})
	}
}

func TestCollect16_Clamps(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 1, 3, func(sample, _ int) float32 {
		return []float32{2, -2, 0}[sample]
	})

	pcm, err := audrx.Collect16(src, 0)
	require.NoError(t, err)
	assert.Equal(t, []int16{32767, -32767, 0}, pcm)
}

func TestCollect16_Empty(t *testing.T) {
	t.Parallel()

	pcm, err := audrx.Collect16(audiotest.NewSilentSource(44100, 2, 0), 4096)
	require.NoError(t, err)
	assert.Empty(t, pcm)
}

func BenchmarkRenderToMono16(b *testing.B) {
	path := writeWAV(b, 44100, 2, constant(2*44100, 4096))
	cfg := receiver.DefaultConfig(48000)

	b.ReportAllocs()
	for b.Loop() {
		_, _, _ = audrx.RenderToMono16(context.Background(), path, cfg, 8000, 4096)
	}
}

var _ audio.Source = (*receiver.OfflineSource)(nil)
