// SPDX-License-Identifier: EPL-2.0

package output

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

// DeviceConfig describes the playback device.
type DeviceConfig struct {
	SampleRate   int
	Channels     int
	PeriodFrames int
}

// Device plays a Driver on the default playback device.
type Device struct {
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	driver *Driver
	logger *slog.Logger

	block []float32
	once  sync.Once
}

// OpenDevice initializes a float32 playback device. The device is silent
// until Start.
func OpenDevice(cfg DeviceConfig, d *Driver, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Channels != d.Channels() {
		return nil, fmt.Errorf("%w: device %d, driver %d", ErrInvalidChannels, cfg.Channels, d.Channels())
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	out := &Device{
		ctx:    ctx,
		driver: d,
		logger: logger,
		block:  make([]float32, max(cfg.PeriodFrames, 512)*cfg.Channels),
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.Playback.Format = malgo.FormatF32
	devCfg.Playback.Channels = uint32(cfg.Channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)
	if cfg.PeriodFrames > 0 {
		devCfg.PeriodSizeInFrames = uint32(cfg.PeriodFrames)
	}

	dev, err := malgo.InitDevice(ctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: out.render,
		Stop: func() { logger.Info("playback device stopped") },
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()

		return nil, fmt.Errorf("init playback device: %w", err)
	}
	out.dev = dev

	return out, nil
}

// render is the device data callback. Requests larger than the block are
// served in several reads.
func (d *Device) render(pOutput, _ []byte, frameCount uint32) {
	channels := d.driver.Channels()
	total := min(int(frameCount)*channels, len(pOutput)/bytesPerSample)

	for off := 0; off < total; off += len(d.block) {
		n := min(len(d.block), total-off)
		n -= n % channels
		if n == 0 {
			clear(pOutput[off*bytesPerSample:])
			return
		}

		block := d.block[:n]
		d.driver.Read(block)
		encodeFloat32(pOutput[off*bytesPerSample:], block)
	}
}

// Start begins playback.
func (d *Device) Start() error {
	if err := d.dev.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}

	return nil
}

// Close stops playback and releases the device.
func (d *Device) Close() error {
	var err error
	d.once.Do(func() {
		if d.dev != nil {
			err = d.dev.Stop()
			d.dev.Uninit()
		}
		if d.ctx != nil {
			_ = d.ctx.Uninit()
			d.ctx.Free()
		}
	})

	return err
}
