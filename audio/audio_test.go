// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"sync"
	"testing"

	"github.com/ik5/audrx/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDecoder struct {
	name string
}

func (d *mockDecoder) Decode(io.Reader) (Source, error) {
	return audiotest.NewSilentSource(44100, 2, 100), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &mockDecoder{name: "wav"}
	registry.Register("wav", decoder)

	got, ok := registry.Get("wav")
	require.True(t, ok)
	assert.Same(t, decoder, got)
}

func TestRegistry_KeyNormalization(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &mockDecoder{name: "ogg"}
	registry.Register(".OGG", decoder)

	tests := []struct {
		key    string
		wantOK bool
	}{
		{"ogg", true},
		{"Ogg", true},
		{".ogg", true},
		{" ogg ", true},
		{"mp3", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			_, ok := registry.Get(tt.key)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestRegistry_ForPath(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	wavDec := &mockDecoder{name: "wav"}
	registry.Register("wav", wavDec)

	got, err := registry.ForPath("/tmp/take-1.WAV")
	require.NoError(t, err)
	assert.Same(t, wavDec, got)

	_, err = registry.ForPath("/tmp/take-1.flac")
	require.ErrorIs(t, err, ErrUnknownFormat)

	_, err = registry.ForPath("/tmp/noext")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRegistry_Formats(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register("ogg", &mockDecoder{})
	registry.Register("aiff", &mockDecoder{})
	registry.Register("wav", &mockDecoder{})

	assert.Equal(t, []string{"aiff", "ogg", "wav"}, registry.Formats())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Register("wav", &mockDecoder{name: string(rune('a' + i))})
		}()
		go func() {
			defer wg.Done()
			_, _ = registry.Get("wav")
		}()
	}
	wg.Wait()

	_, ok := registry.Get("wav")
	assert.True(t, ok)
}

func BenchmarkRegistry_Get(b *testing.B) {
	registry := NewRegistry()
	registry.Register("wav", &mockDecoder{})

	b.ReportAllocs()

	for b.Loop() {
		_, _ = registry.Get("wav")
	}
}
