// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"sync"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/speaker"
)

// levelMeter holds the last peak level of every channel.
type levelMeter struct {
	mu     sync.Mutex
	levels []float32
}

func (m *levelMeter) resizeLocked(n int) {
	if len(m.levels) != n {
		m.levels = grow(m.levels, n)
		clear(m.levels)
	}
}

func (m *levelMeter) setChannel(ch, size int, v float32) {
	m.mu.Lock()
	m.resizeLocked(size)
	if ch >= 0 && ch < len(m.levels) {
		m.levels[ch] = v
	}
	m.mu.Unlock()
}

func (m *levelMeter) setInterleaved(samples []float32, channels int) {
	m.mu.Lock()
	m.resizeLocked(channels)
	audio.PeakInterleaved(m.levels, samples, channels)
	m.mu.Unlock()
}

func (m *levelMeter) zero(size int) {
	m.mu.Lock()
	m.resizeLocked(size)
	clear(m.levels)
	m.mu.Unlock()
}

func (m *levelMeter) snapshot() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.levels) == 0 {
		return nil
	}

	return append([]float32(nil), m.levels...)
}

// layoutCache keeps the speaker layout last seen at the head of the active
// queue. dirty is set on every store and cleared by take.
type layoutCache struct {
	mu          sync.Mutex
	positions   []speaker.Vec3
	gains       []float32
	objectBased bool
	dirty       bool
}

func (c *layoutCache) store(f *bufferedFrame) {
	c.mu.Lock()
	c.positions = append(c.positions[:0], f.positions...)
	c.gains = append(c.gains[:0], f.gains...)
	c.objectBased = f.objectBased
	c.dirty = true
	c.mu.Unlock()
}

// zero replaces the cached positions with n origin points.
func (c *layoutCache) zero(n int) {
	c.mu.Lock()
	c.positions = grow(c.positions, n)
	clear(c.positions)
	c.gains = c.gains[:0]
	c.dirty = false
	c.mu.Unlock()
}

func (c *layoutCache) take() (speaker.Layout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return speaker.Layout{}, false
	}
	c.dirty = false

	return speaker.Layout{
		Positions:   append([]speaker.Vec3(nil), c.positions...),
		Gains:       append([]float32(nil), c.gains...),
		ObjectBased: c.objectBased,
	}, true
}

func (c *layoutCache) snapshot() []speaker.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.positions) == 0 {
		return nil
	}

	return append([]speaker.Vec3(nil), c.positions...)
}

func (c *layoutCache) reset() {
	c.mu.Lock()
	c.positions = c.positions[:0]
	c.gains = c.gains[:0]
	c.objectBased = false
	c.dirty = false
	c.mu.Unlock()
}
