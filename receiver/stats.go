// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"sync"
	"time"
)

// Statistics is a snapshot of the buffer health counters.
type Statistics struct {
	LastVideoFrame   time.Time
	LastAudioFrame   time.Time
	BufferedDuration time.Duration
	Underruns        uint64
	DiscardedFrames  uint64
	FillWaits        uint64
}

// BufferedSeconds is BufferedDuration in seconds.
func (s Statistics) BufferedSeconds() float64 {
	return s.BufferedDuration.Seconds()
}

// statsDelta collects changes made under the buffer lock so they can be
// applied after it is released.
type statsDelta struct {
	underruns uint64
	discarded uint64
	fillWaits uint64

	buffered    time.Duration
	hasBuffered bool
	audioAt     time.Time
}

type statsTracker struct {
	mu sync.Mutex
	s  Statistics
}

func (t *statsTracker) apply(d statsDelta) {
	t.mu.Lock()
	t.s.Underruns += d.underruns
	t.s.DiscardedFrames += d.discarded
	t.s.FillWaits += d.fillWaits
	if d.hasBuffered {
		t.s.BufferedDuration = d.buffered
	}
	if !d.audioAt.IsZero() {
		t.s.LastAudioFrame = d.audioAt
	}
	t.mu.Unlock()
}

func (t *statsTracker) noteVideo(at time.Time) {
	t.mu.Lock()
	t.s.LastVideoFrame = at
	t.mu.Unlock()
}

func (t *statsTracker) snapshot() Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.s
}

func (t *statsTracker) reset() {
	t.mu.Lock()
	t.s = Statistics{}
	t.mu.Unlock()
}
