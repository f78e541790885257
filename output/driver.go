// SPDX-License-Identifier: EPL-2.0

package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ik5/audrx/receiver"
)

type providerRef struct {
	mode Mode
	p    Provider
}

// Driver feeds the device from the provider of the current mode. Read may
// be called from the audio thread while SetMode runs elsewhere.
type Driver struct {
	channels int

	passthrough *PassthroughProvider
	channel     *ChannelProvider
	listener    *ListenerProvider
	auto        *autoProvider

	mu      sync.Mutex
	current atomic.Pointer[providerRef]
}

// NewDriver builds every provider for r and starts in mode. listener may be
// nil when ModeListener is never used.
func NewDriver(r *receiver.Receiver, endpoints *EndpointFactory, listener *ListenerProvider, channels int, mode Mode) (*Driver, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	d := &Driver{
		channels:    channels,
		passthrough: NewPassthroughProvider(r),
		channel:     NewChannelProvider(r, endpoints),
		listener:    listener,
	}
	d.auto = &autoProvider{r: r, passthrough: d.passthrough, channel: d.channel}

	if err := d.SetMode(mode); err != nil {
		return nil, err
	}

	return d, nil
}

// SetMode swaps the active provider.
func (d *Driver) SetMode(m Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var p Provider
	switch m {
	case ModeAuto:
		p = d.auto
	case ModePassthrough:
		p = d.passthrough
	case ModeChannel:
		p = d.channel
	case ModeListener:
		if d.listener == nil {
			return ErrNoListener
		}
		p = d.listener
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, m)
	}

	d.current.Store(&providerRef{mode: m, p: p})

	return nil
}

// Mode returns the active mode.
func (d *Driver) Mode() Mode { return d.current.Load().mode }

// Channels is the device channel count.
func (d *Driver) Channels() int { return d.channels }

// Read fills dst, an interleaved block of the device channel count.
func (d *Driver) Read(dst []float32) bool {
	return d.current.Load().p.Read(dst, d.channels)
}
