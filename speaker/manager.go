// SPDX-License-Identifier: EPL-2.0

package speaker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultDistance is the ring radius used when none is configured.
const DefaultDistance = 10

// Manager owns the virtual speakers of one receiver. It is driven from the
// control context; ActiveChannels is the only method meant for the
// real-time path.
type Manager struct {
	mu       sync.Mutex
	factory  Factory
	distance float32
	logger   *slog.Logger

	active   []*VirtualSpeaker
	parked   []*VirtualSpeaker
	topology Topology
	closed   bool

	channels atomic.Pointer[[]int]
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager returns a manager that allocates endpoints through f and
// places automatic layouts at distance.
func NewManager(f Factory, distance float32, opts ...Option) *Manager {
	if distance <= 0 {
		distance = DefaultDistance
	}

	m := &Manager{
		factory:  f,
		distance: distance,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	empty := []int{}
	m.channels.Store(&empty)

	return m
}

// Configure rebuilds the topology for a source with the given channel count.
// Every active speaker is parked first. Declared positions in meta win over
// the automatic choice; an object-based layout without positions leaves the
// manager empty until positions arrive.
func (m *Manager) Configure(channels int, meta *Layout) (Topology, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return None, ErrClosed
	}

	m.parkLocked()

	if meta != nil && meta.Len() > 0 {
		m.logger.Debug("building speakers from metadata", "count", meta.Len(), "object_based", meta.ObjectBased)
		return m.buildLocked(MetadataDefined, meta.Positions, meta.ObjectBased)
	}

	if meta != nil && meta.ObjectBased {
		return None, nil
	}

	topo := ForChannels(channels)
	switch topo {
	case None:
		return None, nil
	case Circular:
		m.logger.Warn("no template for channel count, using circular layout", "channels", channels)
		return m.buildLocked(Circular, Circle(channels, m.distance), false)
	default:
		return m.buildLocked(topo, Template(topo, m.distance), false)
	}
}

// ApplyLayout follows metadata-driven geometry. A layout with the same
// number of speakers as the active set moves them in place; any other count
// parks everything and builds a new set. Object-based layouts are applied as
// a snapshot on every call.
func (m *Manager) ApplyLayout(meta Layout) (Topology, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return None, ErrClosed
	}

	if meta.Len() == 0 {
		m.logger.Warn("no speaker positions found in audio metadata")
		return m.topology, nil
	}

	if meta.Len() == len(m.active) {
		for i, s := range m.active {
			s.Position = meta.Positions[i]
			s.ObjectBased = meta.ObjectBased
			s.Endpoint.SetPosition(s.Position)
			s.Endpoint.SetObjectBased(meta.ObjectBased)
		}
		m.topology = MetadataDefined

		return m.topology, nil
	}

	m.parkLocked()

	return m.buildLocked(MetadataDefined, meta.Positions, meta.ObjectBased)
}

// Park deactivates every active speaker and keeps it for reuse.
func (m *Manager) Park() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parkLocked()
}

func (m *Manager) parkLocked() {
	for _, s := range m.active {
		s.Endpoint.SetActive(false)
	}

	m.parked = append(m.parked, m.active...)
	m.active = m.active[:0]
	m.topology = None
	m.publishLocked()
}

// acquireLocked pops the most recently parked speaker or allocates one.
func (m *Manager) acquireLocked(channel, total int, pos Vec3, objectBased bool) (*VirtualSpeaker, error) {
	if n := len(m.parked); n > 0 {
		s := m.parked[n-1]
		m.parked[n-1] = nil
		m.parked = m.parked[:n-1]
		s.bind(channel, total, pos, objectBased)

		return s, nil
	}

	if m.factory == nil {
		return nil, ErrNoFactory
	}

	ep, err := m.factory.NewEndpoint(channel, total, pos, objectBased)
	if err != nil {
		return nil, fmt.Errorf("creating endpoint %d/%d: %w", channel, total, err)
	}

	s := &VirtualSpeaker{Endpoint: ep}
	s.bind(channel, total, pos, objectBased)

	return s, nil
}

func (m *Manager) buildLocked(topo Topology, positions []Vec3, objectBased bool) (Topology, error) {
	total := len(positions)
	for i, pos := range positions {
		s, err := m.acquireLocked(i, total, pos, objectBased)
		if err != nil {
			m.parkLocked()
			return None, err
		}
		m.active = append(m.active, s)
	}

	m.topology = topo
	m.publishLocked()

	m.logger.Info("virtual speakers configured", "topology", topo.String(), "count", total, "parked", len(m.parked))

	return topo, nil
}

func (m *Manager) publishLocked() {
	chs := make([]int, len(m.active))
	for i, s := range m.active {
		chs[i] = s.Channel
	}
	m.channels.Store(&chs)
}

// ActiveChannels returns the source channel bound to each active speaker.
// The slice is shared and must not be modified; it is replaced, never
// mutated, on topology changes, so reading it never blocks.
func (m *Manager) ActiveChannels() []int {
	return *m.channels.Load()
}

// Positions returns a copy of the active speaker positions, or nil when no
// virtual speakers are in use.
func (m *Manager) Positions() []Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.active) == 0 {
		return nil
	}

	out := make([]Vec3, len(m.active))
	for i, s := range m.active {
		out[i] = s.Position
	}

	return out
}

// Speakers returns a snapshot of the active speakers.
func (m *Manager) Speakers() []VirtualSpeaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]VirtualSpeaker, len(m.active))
	for i, s := range m.active {
		out[i] = *s
	}

	return out
}

func (m *Manager) Topology() Topology {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.topology
}

// Count is the number of active speakers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.active)
}

// ParkedCount is the number of speakers held for reuse.
func (m *Manager) ParkedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.parked)
}

// Close releases every endpoint, active and parked. It is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, s := range append(m.active, m.parked...) {
		if err := s.Endpoint.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	m.active = nil
	m.parked = nil
	m.topology = None
	m.publishLocked()

	return errors.Join(errs...)
}
