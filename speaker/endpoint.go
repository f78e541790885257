// SPDX-License-Identifier: EPL-2.0

package speaker

// Endpoint is the playback resource behind a virtual speaker. Creating one
// may be expensive, so the manager rebinds and reuses endpoints instead of
// closing them when the topology changes.
type Endpoint interface {
	// Bind assigns the source channel and the topology size.
	Bind(channel, total int)
	SetPosition(pos Vec3)
	SetObjectBased(objectBased bool)
	SetActive(active bool)
	Close() error
}

// Factory allocates new endpoints.
type Factory interface {
	NewEndpoint(channel, total int, pos Vec3, objectBased bool) (Endpoint, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(channel, total int, pos Vec3, objectBased bool) (Endpoint, error)

func (f FactoryFunc) NewEndpoint(channel, total int, pos Vec3, objectBased bool) (Endpoint, error) {
	return f(channel, total, pos, objectBased)
}

// VirtualSpeaker is a logical playback endpoint bound to one source channel.
type VirtualSpeaker struct {
	Position    Vec3
	Channel     int
	Total       int
	ObjectBased bool
	Endpoint    Endpoint
}

func (s *VirtualSpeaker) bind(channel, total int, pos Vec3, objectBased bool) {
	s.Channel = channel
	s.Total = total
	s.Position = pos
	s.ObjectBased = objectBased

	s.Endpoint.Bind(channel, total)
	s.Endpoint.SetPosition(pos)
	s.Endpoint.SetObjectBased(objectBased)
	s.Endpoint.SetActive(true)
}
