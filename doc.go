// SPDX-License-Identifier: EPL-2.0

// Package audrx receives multichannel audio frames, keeps them in a
// bounded jitter buffer and plays them back either straight to the output
// device or through a ring of virtual speakers.
//
// # Packages
//
//   - receiver: the frame buffer, statistics and the producer loop that
//     pulls frames from a Transport.
//   - speaker: speaker layouts, topologies and the virtual speaker manager.
//   - metadata: the XML speaker-layout document carried on frames.
//   - output: playback providers, panning endpoints and the device driver.
//   - transport/file: a Transport that turns decoded audio files into frames.
//   - audio and formats: decoding, resampling and channel conversion.
//
// # Quick Start
//
// Render plays a file through a receiver faster than real time and returns
// the passthrough output as an audio source:
//
//	src, err := audrx.Render(ctx, "music.wav", receiver.DefaultConfig(48000), 2)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	pcm, err := audrx.Collect16(src, 4096)
//
// RenderToMono16 adds resampling and a mono mix-down for callers that need
// telephony-style PCM:
//
//	pcm, rate, err := audrx.RenderToMono16(ctx, "call.mp3", receiver.DefaultConfig(48000), 8000, 4096)
//
// # Live Playback
//
// For real-time playback, start a receiver with a dialer and hand it to an
// output.Driver:
//
//	endpoints := output.NewEndpointFactory(2)
//	r, _ := receiver.New(cfg, file.Dialer(path, file.Options{Paced: true}),
//	    receiver.WithFactory(endpoints))
//	drv, _ := output.NewDriver(r, endpoints, nil, 2, output.ModeAuto)
//	dev, _ := output.OpenDevice(output.DeviceConfig{SampleRate: 48000, Channels: 2}, drv, nil)
//	_ = r.Start(ctx)
//	_ = dev.Start()
//
// Call Receiver.Update periodically from a control goroutine so speaker
// topology changes are applied.
package audrx
