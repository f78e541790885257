// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/speaker"
)

// bufferedFrame is a pooled copy of a Frame converted to the buffer rate.
// Each channel keeps its own read cursor; the frame is retired only when
// every cursor has reached samplesPerChannel.
type bufferedFrame struct {
	samples           []float32
	read              []int
	channels          int
	samplesPerChannel int
	sampleRate        int

	hasLayout   bool
	positions   []speaker.Vec3
	gains       []float32
	objectBased bool
}

// load copies f into the frame, resampling each channel to rate. Storage is
// reused when large enough.
func (b *bufferedFrame) load(f *Frame, rate int, layout *speaker.Layout) {
	srcRate := f.SampleRate
	if srcRate <= 0 {
		srcRate = rate
	}

	spc := audio.ResampledLength(f.SamplesPerChannel, srcRate, rate)

	b.channels = f.Channels
	b.samplesPerChannel = spc
	b.sampleRate = rate
	b.samples = grow(b.samples, f.Channels*spc)
	b.read = grow(b.read, f.Channels)
	clear(b.read)

	for c := range f.Channels {
		audio.ResampleLinear(b.samples[c*spc:(c+1)*spc], f.Plane(c), srcRate, rate)
	}

	b.hasLayout = layout != nil && layout.Len() > 0
	b.objectBased = layout != nil && layout.ObjectBased
	b.positions = b.positions[:0]
	b.gains = b.gains[:0]
	if b.hasLayout {
		b.positions = append(b.positions, layout.Positions...)
		for i := range layout.Positions {
			b.gains = append(b.gains, layout.Gain(i))
		}
	}
}

func (b *bufferedFrame) plane(c int) []float32 {
	return b.samples[c*b.samplesPerChannel : (c+1)*b.samplesPerChannel]
}

func (b *bufferedFrame) exhausted() bool {
	for _, r := range b.read {
		if r < b.samplesPerChannel {
			return false
		}
	}

	return true
}

// remaining is the number of samples left on the most advanced channel.
func (b *bufferedFrame) remaining() int {
	furthest := 0
	for _, r := range b.read {
		furthest = max(furthest, r)
	}

	return b.samplesPerChannel - furthest
}

func (b *bufferedFrame) seek(pos int) {
	for c := range b.read {
		b.read[c] = pos
	}
}

func grow[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}

	return s[:n]
}

// frameQueue is a FIFO of frames. Removing from the front shifts the slice
// so the backing array is reused and steady-state use does not allocate.
type frameQueue struct {
	items []*bufferedFrame
}

func (q *frameQueue) len() int                  { return len(q.items) }
func (q *frameQueue) at(i int) *bufferedFrame   { return q.items[i] }
func (q *frameQueue) front() *bufferedFrame     { return q.items[0] }
func (q *frameQueue) push(f *bufferedFrame)     { q.items = append(q.items, f) }
func (q *frameQueue) pushAll(other *frameQueue) { q.items = append(q.items, other.items...) }

func (q *frameQueue) pop() *bufferedFrame {
	f := q.items[0]
	copy(q.items, q.items[1:])
	q.items[len(q.items)-1] = nil
	q.items = q.items[:len(q.items)-1]

	return f
}

// popBack is used by the pool, which is LIFO.
func (q *frameQueue) popBack() *bufferedFrame {
	if len(q.items) == 0 {
		return nil
	}

	f := q.items[len(q.items)-1]
	q.items[len(q.items)-1] = nil
	q.items = q.items[:len(q.items)-1]

	return f
}

func (q *frameQueue) clear() {
	clear(q.items)
	q.items = q.items[:0]
}

// samples sums the unread samples per channel across the queue.
func (q *frameQueue) samples() int {
	total := 0
	for _, f := range q.items {
		total += f.remaining()
	}

	return total
}
