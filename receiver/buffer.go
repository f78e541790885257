// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/speaker"
)

// Buffer is the frame pool and the pending/active queues between one
// producer and the real-time consumers.
type Buffer struct {
	rate       int
	maxSamples int
	minSamples int
	logger     *slog.Logger

	// consumer serializes Promote, ExtractChannel, FillInterleaved and
	// Reset. It is always taken before mu.
	consumer sync.Mutex

	mu      sync.Mutex
	pending frameQueue
	active  frameQueue
	pool    frameQueue
	waiting bool

	stats  statsTracker
	levels levelMeter
	layout layoutCache

	mismatch sync.Once
	oversize sync.Once
}

// NewBuffer returns an empty buffer waiting for fill. cfg supplies the
// output rate and the Min/Max thresholds.
func NewBuffer(cfg Config, logger *slog.Logger) *Buffer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Buffer{
		rate:       cfg.SampleRate,
		maxSamples: cfg.MaxBufferSamples,
		minSamples: cfg.MinBufferSamples,
		logger:     logger,
		waiting:    true,
	}
}

// Ingest copies f into a pooled frame and appends it to the pending queue.
// layout is the speaker geometry declared with the frame, if any. When the
// pending queue holds more than MaxBufferSamples the oldest pending frames
// are discarded. Returns false, doing nothing, for an invalid frame.
func (b *Buffer) Ingest(f *Frame, layout *speaker.Layout) bool {
	if f.Validate() != nil {
		return false
	}

	b.mu.Lock()
	bf := b.pool.popBack()
	b.mu.Unlock()

	if bf == nil {
		bf = &bufferedFrame{}
	}
	bf.load(f, b.rate, layout)

	if bf.samplesPerChannel*3 > b.maxSamples {
		b.oversize.Do(func() {
			b.logger.Warn("frames too large to leave fill wait, playback will stay silent",
				"samples_per_channel", bf.samplesPerChannel, "max_buffer_samples", b.maxSamples)
		})
	}

	d := statsDelta{audioAt: time.Now(), hasBuffered: true}

	b.mu.Lock()
	b.pending.push(bf)
	for b.pending.len()*bf.samplesPerChannel > b.maxSamples {
		b.pool.push(b.pending.pop())
		d.discarded++
	}
	d.buffered = b.bufferedLocked()
	b.mu.Unlock()

	b.stats.apply(d)

	return true
}

func (b *Buffer) bufferedLocked() time.Duration {
	samples := b.pending.samples() + b.active.samples()
	return time.Duration(int64(samples) * int64(time.Second) / int64(b.rate))
}

// Promote advances the state machine for a cycle that will read frameSize
// samples per channel. channels sizes the zeroed level and position arrays
// after an underrun. It returns true when a block of frameSize samples can be
// extracted.
func (b *Buffer) Promote(frameSize, channels int) bool {
	b.consumer.Lock()
	defer b.consumer.Unlock()

	return b.promote(frameSize, channels)
}

func (b *Buffer) promote(frameSize, channels int) bool {
	d := statsDelta{hasBuffered: true}

	b.mu.Lock()

	b.active.pushAll(&b.pending)
	b.pending.clear()

	if n := b.active.len(); n > 0 && b.active.front().samplesPerChannel*n > b.maxSamples {
		for n > 0 && b.active.front().samplesPerChannel*n > b.minSamples {
			b.pool.push(b.active.pop())
			d.discarded++
			n--
		}
	}

	if b.waiting {
		n := b.active.len()
		if n > 0 {
			d.fillWaits++
		}
		if (n > 0 && b.active.front().samplesPerChannel*n < b.minSamples) || n <= 2 {
			d.buffered = b.bufferedLocked()
			b.mu.Unlock()
			b.stats.apply(d)

			return false
		}
		b.waiting = false
	}

	for b.active.len() > 0 && b.active.front().exhausted() {
		b.pool.push(b.active.pop())
	}

	if b.active.len() == 0 {
		b.waiting = true
		b.mu.Unlock()

		d.underruns++
		b.stats.apply(d)
		b.levels.zero(channels)
		b.layout.zero(channels)

		return false
	}

	if b.active.samples() < frameSize {
		b.waiting = true
		d.underruns++
		d.buffered = b.bufferedLocked()
		b.mu.Unlock()
		b.stats.apply(d)

		return false
	}

	head := b.active.front()
	d.buffered = b.bufferedLocked()
	b.mu.Unlock()

	b.stats.apply(d)

	// Active frames are only recycled by consumers, which are serialized,
	// so head stays valid after mu is released.
	if head.hasLayout {
		b.layout.store(head)
	}

	return true
}

// ExtractChannel writes frameSize = len(dst)/outChannels samples of source
// channel into dst, interleaved outChannels wide, according to mode. On
// every failure path the affected slots are filled with silence and false is
// returned. Promote must have succeeded for the cycle.
func (b *Buffer) ExtractChannel(dst []float32, channel, outChannels int, mode audio.UpMixMode) bool {
	if outChannels <= 0 || channel < 0 {
		return false
	}

	b.consumer.Lock()
	defer b.consumer.Unlock()

	frameSize := len(dst) / outChannels
	dst = dst[:frameSize*outChannels]

	b.mu.Lock()

	if b.waiting || b.active.len() == 0 || b.headExhaustedLocked(channel) {
		b.mu.Unlock()
		audio.SilenceFrames(dst, 0, channel, outChannels, mode)

		return false
	}

	widest := 0
	for i := range b.active.len() {
		widest = max(widest, b.active.at(i).channels)
	}

	copied := 0
	mismatch := false
	drained := false

	for i := 0; copied < frameSize; i++ {
		if i >= b.active.len() {
			for j := range b.active.len() {
				f := b.active.at(j)
				f.seek(f.samplesPerChannel)
			}
			b.waiting = true
			drained = true

			break
		}

		f := b.active.at(i)
		if channel >= f.channels {
			mismatch = true
			break
		}

		cursor := f.read[channel]
		n := min(frameSize-copied, f.samplesPerChannel-cursor)
		if n <= 0 {
			continue
		}

		audio.UpMix(dst[copied*outChannels:], f.plane(channel)[cursor:cursor+n], channel, outChannels, mode)
		f.read[channel] += n
		copied += n
	}

	b.mu.Unlock()

	if drained {
		audio.SilenceFrames(dst, 0, channel, outChannels, mode)
		b.stats.apply(statsDelta{underruns: 1})
		b.levels.setChannel(channel, widest, 0)

		return false
	}

	if copied < frameSize {
		audio.SilenceFrames(dst, copied, channel, outChannels, mode)
	}

	if mismatch {
		b.mismatch.Do(func() {
			b.logger.Warn("speaker channel beyond source channel count, filling with silence",
				"channel", channel, "widest_frame", widest)
		})
	}

	slot := 0
	if mode == audio.UpMixSpatial && outChannels > 0 {
		slot = channel % outChannels
	}
	b.levels.setChannel(channel, widest, audio.PeakStrided(dst, slot, outChannels))

	return true
}

// headExhaustedLocked reports whether channel of the head frame was already
// read to the end, meaning the cycle was not promoted.
func (b *Buffer) headExhaustedLocked(channel int) bool {
	head := b.active.front()
	return channel < head.channels && head.read[channel] >= head.samplesPerChannel
}

// FillInterleaved promotes for len(dst)/outChannels samples and writes every
// source channel into dst, outChannels wide. Source channels beyond
// outChannels are dropped and missing ones are silent. dst is silent
// whenever false is returned.
func (b *Buffer) FillInterleaved(dst []float32, outChannels int) bool {
	if outChannels <= 0 {
		return false
	}

	b.consumer.Lock()
	defer b.consumer.Unlock()

	frameSize := len(dst) / outChannels
	dst = dst[:frameSize*outChannels]

	if !b.promote(frameSize, outChannels) {
		clear(dst)
		return false
	}

	b.mu.Lock()

	if b.active.len() == 0 {
		b.mu.Unlock()
		clear(dst)

		return false
	}

	headStart := b.active.front().read[0]
	copied := 0

	for i := 0; copied < frameSize; i++ {
		if i >= b.active.len() {
			// Rewind what this call consumed; the head may have been
			// partially played before.
			for j := range i {
				b.active.at(j).seek(0)
			}
			b.active.front().seek(headStart)
			b.mu.Unlock()

			clear(dst)
			b.stats.apply(statsDelta{underruns: 1})

			return false
		}

		f := b.active.at(i)
		start := f.read[0]
		n := min(frameSize-copied, f.samplesPerChannel-start)
		if n <= 0 {
			continue
		}

		audio.InterleaveRange(dst[copied*outChannels:], outChannels, f.samples, f.channels, f.samplesPerChannel, start, n)
		f.seek(start + n)
		copied += n
	}

	b.mu.Unlock()

	b.levels.setInterleaved(dst, outChannels)

	return true
}

// Reset recycles every queued frame and re-enters waiting for fill.
func (b *Buffer) Reset() {
	b.consumer.Lock()
	defer b.consumer.Unlock()

	b.mu.Lock()
	b.pool.pushAll(&b.pending)
	b.pool.pushAll(&b.active)
	b.pending.clear()
	b.active.clear()
	b.waiting = true
	b.mu.Unlock()

	b.levels.zero(0)
	b.layout.reset()
}

// Waiting reports whether the buffer is waiting for fill.
func (b *Buffer) Waiting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.waiting
}

// Queued returns the number of pending and active frames.
func (b *Buffer) Queued() (pending, active int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pending.len(), b.active.len()
}

// Statistics returns a copy of the buffer counters.
func (b *Buffer) Statistics() Statistics { return b.stats.snapshot() }

// Levels returns a copy of the per-channel peak levels.
func (b *Buffer) Levels() []float32 { return b.levels.snapshot() }

// ReceivedPositions returns the speaker positions last seen at the head of
// the active queue.
func (b *Buffer) ReceivedPositions() []speaker.Vec3 { return b.layout.snapshot() }

// TakeLayout returns the layout cached since the previous call, if any.
func (b *Buffer) TakeLayout() (speaker.Layout, bool) { return b.layout.take() }
