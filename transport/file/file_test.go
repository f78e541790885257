// SPDX-License-Identifier: EPL-2.0

package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/formats/wav"
	"github.com/ik5/audrx/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWav(t *testing.T, rate, channels, frames int) string {
	t.Helper()

	samples := make([]int16, frames*channels)
	for i := range frames {
		for c := range channels {
			samples[i*channels+c] = int16(c*1000 + i)
		}
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.Encode(f, rate, channels, samples))
	require.NoError(t, f.Close())

	return path
}

func TestOpen_FramesFile(t *testing.T) {
	t.Parallel()

	path := writeWav(t, 8000, 2, 250)
	tr, err := Open(path, Options{FrameSamples: 100, Metadata: "<VirtualSpeakers/>"})
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, 8000, tr.SampleRate())
	assert.Equal(t, 2, tr.Channels())

	ctx := context.Background()
	var sizes []int
	var stamps []time.Duration

	for {
		f, err := tr.Capture(ctx, time.Millisecond)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NotNil(t, f)

		sizes = append(sizes, f.SamplesPerChannel)
		stamps = append(stamps, f.Timestamp)
		assert.Equal(t, 8000, f.SampleRate)
		assert.Equal(t, "<VirtualSpeakers/>", f.Metadata)

		// Planar: channel 1 starts after all of channel 0.
		assert.InDelta(t, 1000.0/32768, f.Plane(1)[0]-f.Plane(0)[0], 1e-4)
		tr.Release(f)
	}

	assert.Equal(t, []int{100, 100, 50}, sizes)
	assert.Equal(t, []time.Duration{0, 12500 * time.Microsecond, 25 * time.Millisecond}, stamps)
}

func TestOpen_UnknownExtension(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "clip.flac"), Options{})
	assert.ErrorIs(t, err, audio.ErrUnknownFormat)
}

func TestOpen_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.wav"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNew_DefaultFrameSize(t *testing.T) {
	t.Parallel()

	tr, err := New(audiotest.NewSineSource(48000, 1, 4800, 440), Options{})
	require.NoError(t, err)
	defer tr.Close()

	f, err := tr.Capture(context.Background(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 960, f.SamplesPerChannel)
}

func TestNew_RejectsEmptyShape(t *testing.T) {
	t.Parallel()

	_, err := New(audiotest.NewSilentSource(0, 2, 10), Options{})
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestRelease_ReusesFrames(t *testing.T) {
	t.Parallel()

	tr, err := New(audiotest.NewConstantSource(1000, 2, 100, 0.5), Options{FrameSamples: 10})
	require.NoError(t, err)
	defer tr.Close()

	ctx := context.Background()
	first, err := tr.Capture(ctx, time.Millisecond)
	require.NoError(t, err)
	tr.Release(first)

	second, err := tr.Capture(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 10*time.Millisecond, second.Timestamp)
}

func TestLoop_RestartsFile(t *testing.T) {
	t.Parallel()

	path := writeWav(t, 8000, 1, 30)
	tr, err := Open(path, Options{FrameSamples: 20, Loop: true})
	require.NoError(t, err)
	defer tr.Close()

	ctx := context.Background()
	for range 5 {
		f, err := tr.Capture(ctx, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 20, f.SamplesPerChannel)
		tr.Release(f)
	}
}

func TestPaced_WaitsForDueTime(t *testing.T) {
	t.Parallel()

	// One-second frames: the second one is not due within the timeout.
	tr, err := New(audiotest.NewConstantSource(100, 1, 1000, 0.1), Options{FrameSamples: 100, Paced: true})
	require.NoError(t, err)
	defer tr.Close()

	ctx := context.Background()
	f, err := tr.Capture(ctx, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, f)

	f, err = tr.Capture(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, f)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.Capture(cancelled, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose_EndsCapture(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(1000, 1, 100, 0.5)
	tr, err := New(src, Options{FrameSamples: 10})
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	assert.True(t, src.Closed())

	_, err = tr.Capture(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDialer_OpensPerDial(t *testing.T) {
	t.Parallel()

	path := writeWav(t, 8000, 2, 10)
	dial := Dialer(path, Options{})

	a, err := dial(context.Background())
	require.NoError(t, err)
	b, err := dial(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}
