// SPDX-License-Identifier: EPL-2.0

package output

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/ik5/audrx/internal/audiotest"
	"github.com/ik5/audrx/receiver"
	"github.com/ik5/audrx/speaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rate = 48000

func newTestReceiver(t *testing.T, factory *EndpointFactory) *receiver.Receiver {
	t.Helper()

	r, err := receiver.New(receiver.DefaultConfig(rate), nil,
		receiver.WithFactory(factory),
		receiver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func feed(t *testing.T, r *receiver.Receiver, channels, frames int) {
	t.Helper()

	for range frames {
		require.True(t, r.Ingest(&receiver.Frame{
			SampleRate:        rate,
			Channels:          channels,
			SamplesPerChannel: 1600,
			Data:              audiotest.Planar(channels, 1600, audiotest.ChannelMarker()),
		}))
	}
	require.NoError(t, r.Update())
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeAuto},
		{in: "auto", want: ModeAuto},
		{in: "Passthrough", want: ModePassthrough},
		{in: " channel ", want: ModeChannel},
		{in: "speakers", want: ModeChannel},
		{in: "listener", want: ModeListener},
		{in: "sender", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, m := range []Mode{ModeAuto, ModePassthrough, ModeChannel, ModeListener} {
		back, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestPanGains(t *testing.T) {
	t.Parallel()

	const h = float32(math.Sqrt2 / 2)
	stereo := deviceDirections(2)

	tests := []struct {
		name string
		pos  speaker.Vec3
		dirs []speaker.Vec3
		want []float32
	}{
		{name: "front left", pos: speaker.Vec3{X: -10, Z: 10}, dirs: stereo, want: []float32{1, 0}},
		{name: "front right", pos: speaker.Vec3{X: 10, Z: 10}, dirs: stereo, want: []float32{0, 1}},
		{name: "center", pos: speaker.Vec3{Z: 10}, dirs: stereo, want: []float32{h, h}},
		{name: "origin", pos: speaker.Vec3{}, dirs: stereo, want: []float32{h, h}},
		{name: "behind", pos: speaker.Vec3{Z: -10}, dirs: stereo, want: []float32{h, h}},
		{name: "mono device", pos: speaker.Vec3{X: 3}, dirs: deviceDirections(1), want: []float32{1}},
		{
			name: "5.1 center",
			pos:  speaker.Vec3{Z: 10},
			dirs: deviceDirections(6),
			want: []float32{0.5, 0.5, h, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := panGains(tt.pos, tt.dirs)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-5, "channel %d", i)
			}
		})
	}
}

func TestPanGains_ConstantPower(t *testing.T) {
	t.Parallel()

	dirs := deviceDirections(8)
	for _, pos := range speaker.Circle(12, 5) {
		var power float64
		for _, g := range panGains(pos, dirs) {
			power += float64(g * g)
		}
		assert.InDelta(t, 1, power, 1e-5, "position %s", pos)
	}
}

func TestEndpointFactory(t *testing.T) {
	t.Parallel()

	f := NewEndpointFactory(2)
	assert.Empty(t, f.Endpoints())

	ep, err := f.NewEndpoint(1, 2, speaker.Vec3{X: 10, Z: 10}, true)
	require.NoError(t, err)
	require.Len(t, f.Endpoints(), 1)

	e := f.Endpoints()[0]
	assert.Same(t, ep, speaker.Endpoint(e))
	assert.Equal(t, 1, e.Channel())
	assert.True(t, e.Active())
	assert.True(t, e.objectBased.Load())
	assert.InDelta(t, 1, e.Gains()[1], 1e-6)

	e.Bind(0, 2)
	e.SetPosition(speaker.Vec3{X: -10, Z: 10})
	assert.Equal(t, 0, e.Channel())
	assert.Equal(t, speaker.Vec3{X: -10, Z: 10}, e.Position())
	assert.InDelta(t, 1, e.Gains()[0], 1e-6)

	e.SetActive(false)
	assert.False(t, e.Active())
	e.SetActive(true)
	require.NoError(t, e.Close())
	assert.False(t, e.Active())
}

func TestPassthroughProvider(t *testing.T) {
	t.Parallel()

	r := newTestReceiver(t, NewEndpointFactory(2))
	feed(t, r, 2, 3)

	dst := make([]float32, 2*4)
	require.True(t, NewPassthroughProvider(r).Read(dst, 2))
	assert.Equal(t, []float32{0.1, 0.2, 0.1, 0.2, 0.1, 0.2, 0.1, 0.2}, dst)
}

func TestChannelProvider_NoSpeakersDuplicatesFirstChannel(t *testing.T) {
	t.Parallel()

	factory := NewEndpointFactory(2)
	r := newTestReceiver(t, factory)
	feed(t, r, 2, 3)
	require.False(t, r.UsingVirtualSpeakers())

	dst := make([]float32, 2*4)
	require.True(t, NewChannelProvider(r, factory).Read(dst, 2))
	assert.Equal(t, []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}, dst)
}

func TestChannelProvider_PansQuadToStereo(t *testing.T) {
	t.Parallel()

	factory := NewEndpointFactory(2)
	r := newTestReceiver(t, factory)
	feed(t, r, 4, 3)
	require.True(t, r.UsingVirtualSpeakers())
	require.Equal(t, speaker.Quad, r.Speakers().Topology())
	require.Len(t, factory.Endpoints(), 4)

	p := NewChannelProvider(r, factory)
	dst := make([]float32, 2*480)
	require.True(t, p.Read(dst, 2))

	// Front speakers land on their side, rear ones are spread evenly.
	rear := (0.3 + 0.4) * math.Sqrt2 / 2
	assert.InDelta(t, 0.1+rear, dst[0], 1e-5)
	assert.InDelta(t, 0.2+rear, dst[1], 1e-5)
	assert.InDelta(t, dst[0], dst[2*479], 1e-6)

	// Every channel advanced together: the next block continues the frame.
	require.True(t, p.Read(dst, 2))
	_, active := r.Buffer().Queued()
	assert.Equal(t, 3, active)
}

func TestChannelProvider_ZeroAllocs(t *testing.T) {
	factory := NewEndpointFactory(2)
	r := newTestReceiver(t, factory)
	feed(t, r, 4, 3)

	f := &receiver.Frame{
		SampleRate:        rate,
		Channels:          4,
		SamplesPerChannel: 960,
		Data:              audiotest.Planar(4, 960, audiotest.Sine(rate, 440)),
	}
	p := NewChannelProvider(r, factory)
	dst := make([]float32, 2*960)

	cycle := func() {
		r.Buffer().Ingest(f, nil)
		p.Read(dst, 2)
	}
	for range 20 {
		cycle()
	}

	assert.Zero(t, testing.AllocsPerRun(100, cycle))
}

func TestDriver_Modes(t *testing.T) {
	t.Parallel()

	factory := NewEndpointFactory(2)
	r := newTestReceiver(t, factory)

	_, err := NewDriver(r, factory, nil, 0, ModeAuto)
	require.ErrorIs(t, err, ErrInvalidChannels)

	d, err := NewDriver(r, factory, nil, 2, ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, d.Mode())
	assert.Equal(t, 2, d.Channels())

	assert.ErrorIs(t, d.SetMode(ModeListener), ErrNoListener)
	assert.ErrorIs(t, d.SetMode(Mode(42)), ErrUnsupportedMode)
	assert.Equal(t, ModeAuto, d.Mode())

	require.NoError(t, d.SetMode(ModePassthrough))
	assert.Equal(t, ModePassthrough, d.Mode())
}

func TestDriver_AutoFollowsRouting(t *testing.T) {
	t.Parallel()

	factory := NewEndpointFactory(2)
	r := newTestReceiver(t, factory)
	d, err := NewDriver(r, factory, nil, 2, ModeAuto)
	require.NoError(t, err)

	// Stereo source: passthrough keeps the channels apart.
	feed(t, r, 2, 3)
	dst := make([]float32, 2*4)
	require.True(t, d.Read(dst))
	assert.Equal(t, float32(0.1), dst[0])
	assert.Equal(t, float32(0.2), dst[1])

	// A quad source switches to the speaker mix.
	r.Buffer().Reset()
	feed(t, r, 4, 3)
	require.True(t, r.UsingVirtualSpeakers())
	require.True(t, d.Read(dst))
	assert.Greater(t, dst[0], float32(0.5))
}

func TestListenerProvider_RemapAndRead(t *testing.T) {
	t.Parallel()

	l := NewListenerProvider(2, 1000)

	l.Write([]float32{0.5, 0.25, 0.75}, 1)
	assert.Equal(t, 3, l.Buffered())

	dst := make([]float32, 2*4)
	assert.False(t, l.Read(dst, 2))
	assert.Equal(t, []float32{0.5, 0, 0.25, 0, 0.75, 0, 0, 0}, dst)

	l.Write([]float32{1, 2, 3, 4, 5, 6}, 3)
	dst = make([]float32, 2*2)
	assert.True(t, l.Read(dst, 2))
	assert.Equal(t, []float32{1, 2, 4, 5}, dst)

	assert.False(t, l.Read(dst, 6), "channel count must match the device")
}

func TestListenerProvider_KeepsFourWrites(t *testing.T) {
	t.Parallel()

	l := NewListenerProvider(1, 1000)
	for w := range 6 {
		l.Write(filled(10, float32(w)), 1)
	}
	assert.Equal(t, 40, l.Buffered())

	dst := make([]float32, 40)
	require.True(t, l.Read(dst, 1))
	assert.Equal(t, float32(2), dst[0])
	assert.Equal(t, float32(5), dst[39])
}

func TestListenerProvider_WriteFrame(t *testing.T) {
	t.Parallel()

	l := NewListenerProvider(2, 100)
	l.WriteFrame(&receiver.Frame{
		SampleRate:        rate,
		Channels:          3,
		SamplesPerChannel: 2,
		Data:              []float32{1, 2, 10, 20, 100, 200},
	})
	l.WriteFrame(&receiver.Frame{})

	dst := make([]float32, 4)
	require.True(t, l.Read(dst, 2))
	assert.Equal(t, []float32{1, 10, 2, 20}, dst)
}

func TestDevice_RenderChunks(t *testing.T) {
	t.Parallel()

	l := NewListenerProvider(2, 100)
	data := make([]float32, 2*10)
	for i := range data {
		data[i] = float32(i) / 100
	}
	l.Write(data, 2)

	factory := NewEndpointFactory(2)
	d, err := NewDriver(newTestReceiver(t, factory), factory, l, 2, ModeListener)
	require.NoError(t, err)

	dev := &Device{driver: d, block: make([]float32, 2*4)}
	out := make([]byte, 2*12*bytesPerSample)
	dev.render(out, nil, 12)

	got := make([]float32, 2*12)
	decodeFloat32(got, out)
	assert.Equal(t, data, got[:20])
	assert.Equal(t, []float32{0, 0, 0, 0}, got[20:])
}

func filled(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}

	return out
}

func BenchmarkChannelProvider_Read(b *testing.B) {
	factory := NewEndpointFactory(2)
	r, _ := receiver.New(receiver.DefaultConfig(rate), nil,
		receiver.WithFactory(factory),
		receiver.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	f := &receiver.Frame{
		SampleRate:        rate,
		Channels:          8,
		SamplesPerChannel: 960,
		Data:              audiotest.Planar(8, 960, audiotest.Sine(rate, 440)),
	}
	for range 5 {
		r.Ingest(f)
	}
	_ = r.Update()

	p := NewChannelProvider(r, factory)
	dst := make([]float32, 2*960)

	b.ReportAllocs()

	for b.Loop() {
		r.Buffer().Ingest(f, nil)
		p.Read(dst, 2)
	}
}
