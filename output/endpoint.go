// SPDX-License-Identifier: EPL-2.0

package output

import (
	"sync"
	"sync/atomic"

	"github.com/ik5/audrx/speaker"
)

// Endpoint is a virtual speaker rendered by panning onto the device
// channels. State read by the audio callback is held in atomics.
type Endpoint struct {
	dirs []speaker.Vec3

	channel     atomic.Int32
	active      atomic.Bool
	objectBased atomic.Bool
	closed      atomic.Bool
	gains       atomic.Pointer[[]float32]

	mu  sync.Mutex
	pos speaker.Vec3
}

func newEndpoint(dirs []speaker.Vec3, channel int, pos speaker.Vec3, objectBased bool) *Endpoint {
	e := &Endpoint{dirs: dirs}
	e.channel.Store(int32(channel))
	e.objectBased.Store(objectBased)
	e.active.Store(true)
	e.SetPosition(pos)

	return e
}

func (e *Endpoint) Bind(channel, _ int) { e.channel.Store(int32(channel)) }

func (e *Endpoint) SetPosition(pos speaker.Vec3) {
	e.mu.Lock()
	e.pos = pos
	e.mu.Unlock()

	g := panGains(pos, e.dirs)
	e.gains.Store(&g)
}

func (e *Endpoint) SetObjectBased(v bool) { e.objectBased.Store(v) }
func (e *Endpoint) SetActive(v bool)      { e.active.Store(v) }

func (e *Endpoint) Close() error {
	e.closed.Store(true)
	e.active.Store(false)

	return nil
}

// Channel is the source channel the endpoint plays.
func (e *Endpoint) Channel() int { return int(e.channel.Load()) }

// Active reports whether the endpoint is bound and not closed.
func (e *Endpoint) Active() bool { return e.active.Load() && !e.closed.Load() }

// Gains returns the per-device-channel gains for the current position. The
// slice is shared and must not be modified.
func (e *Endpoint) Gains() []float32 { return *e.gains.Load() }

// Position returns the current position.
func (e *Endpoint) Position() speaker.Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pos
}

// EndpointFactory creates panning endpoints for a device with a fixed
// channel count. It implements speaker.Factory.
type EndpointFactory struct {
	dirs []speaker.Vec3

	mu        sync.Mutex
	endpoints atomic.Pointer[[]*Endpoint]
}

// NewEndpointFactory returns a factory for a device with deviceChannels
// channels.
func NewEndpointFactory(deviceChannels int) *EndpointFactory {
	f := &EndpointFactory{dirs: deviceDirections(deviceChannels)}
	empty := []*Endpoint{}
	f.endpoints.Store(&empty)

	return f
}

func (f *EndpointFactory) NewEndpoint(channel, _ int, pos speaker.Vec3, objectBased bool) (speaker.Endpoint, error) {
	e := newEndpoint(f.dirs, channel, pos, objectBased)

	f.mu.Lock()
	old := *f.endpoints.Load()
	next := make([]*Endpoint, len(old), len(old)+1)
	copy(next, old)
	next = append(next, e)
	f.endpoints.Store(&next)
	f.mu.Unlock()

	return e, nil
}

// Endpoints returns every endpoint created so far, including parked ones.
// The slice is shared and must not be modified.
func (f *EndpointFactory) Endpoints() []*Endpoint { return *f.endpoints.Load() }
