// SPDX-License-Identifier: EPL-2.0

package output

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/receiver"
	"github.com/smallnest/ringbuffer"
)

const bytesPerSample = 4

// DefaultListenerFrames is one second at 48 kHz.
const DefaultListenerFrames = 48000

// ListenerProvider plays audio written into it, remapped to the device
// channel count. Only the latest four writes worth of audio is kept, so a
// slow reader falls behind by a bounded amount.
type ListenerProvider struct {
	channels int

	mu        sync.Mutex
	rb        *ringbuffer.RingBuffer
	remapped  []float32
	planar    []float32
	wbuf      []byte
	rbuf      []byte
	lastWrite int
}

// NewListenerProvider returns a provider for a device with channels
// channels holding up to capacityFrames frames.
func NewListenerProvider(channels, capacityFrames int) *ListenerProvider {
	channels = max(channels, 1)
	if capacityFrames <= 0 {
		capacityFrames = DefaultListenerFrames
	}

	return &ListenerProvider{
		channels: channels,
		rb:       ringbuffer.New(capacityFrames * channels * bytesPerSample),
	}
}

// Write appends interleaved data with the given channel count.
func (l *ListenerProvider) Write(data []float32, channels int) {
	if channels <= 0 || len(data) < channels {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	frames := len(data) / channels
	l.remapped = growFloats(l.remapped, frames*l.channels)
	audio.Remap(l.remapped, l.channels, data[:frames*channels], channels)

	l.writeLocked(l.remapped)
}

// WriteFrame appends a planar receiver frame.
func (l *ListenerProvider) WriteFrame(f *receiver.Frame) {
	if f.Validate() != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.planar = growFloats(l.planar, f.Channels*f.SamplesPerChannel)
	audio.Interleave(l.planar, f.Data, f.Channels, f.SamplesPerChannel)

	l.remapped = growFloats(l.remapped, f.SamplesPerChannel*l.channels)
	audio.Remap(l.remapped, l.channels, l.planar, f.Channels)

	l.writeLocked(l.remapped)
}

func (l *ListenerProvider) writeLocked(samples []float32) {
	n := len(samples) * bytesPerSample
	if cap(l.wbuf) < n {
		l.wbuf = make([]byte, n)
	}
	b := l.wbuf[:n]
	encodeFloat32(b, samples)

	l.lastWrite = n

	// Keep at most four writes, and never more than fits.
	limit := min(4*n, l.rb.Capacity())
	if n > limit {
		b = b[n-limit:]
		n = limit
	}
	if excess := l.rb.Length() + n - limit; excess > 0 {
		l.discardLocked(excess)
	}

	_, _ = l.rb.Write(b)
}

func (l *ListenerProvider) discardLocked(n int) {
	if cap(l.rbuf) < n {
		l.rbuf = make([]byte, n)
	}
	_, _ = l.rb.Read(l.rbuf[:n])
}

// Read drains up to len(dst) samples and pads the rest with silence. It
// returns false when not enough audio was buffered.
func (l *ListenerProvider) Read(dst []float32, channels int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if channels != l.channels {
		clear(dst)
		return false
	}

	want := len(dst) * bytesPerSample
	avail := l.rb.Length() / bytesPerSample * bytesPerSample
	n := min(want, avail)

	if n > 0 {
		if cap(l.rbuf) < n {
			l.rbuf = make([]byte, n)
		}
		got, _ := l.rb.Read(l.rbuf[:n])
		n = got / bytesPerSample * bytesPerSample
		decodeFloat32(dst, l.rbuf[:n])
	}

	clear(dst[n/bytesPerSample:])

	return n == want
}

// Buffered returns the number of buffered frames.
func (l *ListenerProvider) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rb.Length() / (bytesPerSample * l.channels)
}

func growFloats(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}

	return s[:n]
}

func encodeFloat32(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*bytesPerSample:], math.Float32bits(v))
	}
}

func decodeFloat32(dst []float32, src []byte) {
	for i := range len(src) / bytesPerSample {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*bytesPerSample:]))
	}
}
