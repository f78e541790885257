// SPDX-License-Identifier: EPL-2.0

package output

import (
	"sync"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/receiver"
)

// Provider fills one interleaved device block, channels wide. dst is always
// fully written; false means it holds silence or only part of the audio.
type Provider interface {
	Read(dst []float32, channels int) bool
}

// PassthroughProvider copies source channels straight to the device.
type PassthroughProvider struct {
	r *receiver.Receiver
}

func NewPassthroughProvider(r *receiver.Receiver) *PassthroughProvider {
	return &PassthroughProvider{r: r}
}

func (p *PassthroughProvider) Read(dst []float32, channels int) bool {
	return p.r.PullPassthroughBlock(dst, channels)
}

// ChannelProvider renders each active virtual speaker: the speaker's source
// channel is extracted as mono and mixed into the block with the speaker's
// pan gains. All speakers of one block share an epoch so the buffer is
// promoted once per block. Without any active speaker, source channel 0 is
// duplicated to every device channel.
type ChannelProvider struct {
	r         *receiver.Receiver
	endpoints *EndpointFactory

	mu      sync.Mutex
	epoch   uint64
	scratch []float32
}

func NewChannelProvider(r *receiver.Receiver, endpoints *EndpointFactory) *ChannelProvider {
	return &ChannelProvider{r: r, endpoints: endpoints}
}

func (p *ChannelProvider) Read(dst []float32, channels int) bool {
	if channels <= 0 {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	frames := len(dst) / channels
	dst = dst[:frames*channels]
	clear(dst)

	p.epoch++
	epoch := p.epoch

	if cap(p.scratch) < frames {
		p.scratch = make([]float32, frames)
	}
	mono := p.scratch[:frames]

	played := false
	speakers := 0

	for _, e := range p.endpoints.Endpoints() {
		if !e.Active() {
			continue
		}
		speakers++

		if !p.r.PullChannelBlock(mono, e.Channel(), 1, audio.UpMixSpatial, epoch) {
			continue
		}
		played = true

		mixPanned(dst, mono, e.Gains(), channels)
	}

	if speakers == 0 {
		return p.r.PullChannelBlock(dst, 0, channels, audio.UpMixDuplicate, epoch)
	}

	return played
}

// mixPanned adds mono into dst scaled by gains. Gains computed for another
// channel count wrap around.
func mixPanned(dst, mono, gains []float32, channels int) {
	if len(gains) == 0 {
		return
	}

	for i, v := range mono {
		frame := dst[i*channels : (i+1)*channels]
		for c := range frame {
			frame[c] += v * gains[c%len(gains)]
		}
	}
}

// autoProvider follows the receiver routing decision on every block.
type autoProvider struct {
	r           *receiver.Receiver
	passthrough Provider
	channel     Provider
}

func (a *autoProvider) Read(dst []float32, channels int) bool {
	if a.r.UsingVirtualSpeakers() {
		return a.channel.Read(dst, channels)
	}

	return a.passthrough.Read(dst, channels)
}
