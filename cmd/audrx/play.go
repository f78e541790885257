// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ik5/audrx/internal/metrics"
	"github.com/ik5/audrx/metadata"
	"github.com/ik5/audrx/output"
	"github.com/ik5/audrx/receiver"
	"github.com/ik5/audrx/transport/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	updateInterval = 50 * time.Millisecond
	statsInterval  = 5 * time.Second
)

func playCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Play an audio file in real time",
		Long:  "Stream an audio file through the receiver buffer to the default playback device.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), args[0])
		},
	}

	f := cmd.Flags()
	f.String("mode", "", "Output mode: auto, passthrough, channel, listener")
	f.Int("period", 0, "Device period in frames")
	f.Bool("loop", false, "Restart the file when it ends")
	f.String("metadata", "", "XML speaker layout attached to every frame")
	f.String("metrics-listen", "", "Serve Prometheus metrics on this address")

	a.bind(f, map[string]string{
		"output.mode":             "mode",
		"output.period_frames":    "period",
		"transport.loop":          "loop",
		"transport.metadata_file": "metadata",
		"metrics.listen":          "metrics-listen",
	})

	return cmd
}

// readMetadata loads and checks the layout document at path.
func readMetadata(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read metadata: %w", err)
	}
	if _, err := metadata.Parse(string(raw)); err != nil {
		return "", fmt.Errorf("metadata %s: %w", path, err)
	}

	return string(raw), nil
}

func (a *app) play(ctx context.Context, path string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	rc := cfg.ReceiverConfig()
	mode := cfg.OutputMode()
	channels := cfg.Output.Channels

	meta, err := readMetadata(cfg.Transport.MetadataFile)
	if err != nil {
		return err
	}

	endpoints := output.NewEndpointFactory(channels)
	listener := output.NewListenerProvider(channels, rc.SampleRate)

	opts := []receiver.Option{
		receiver.WithLogger(a.logger),
		receiver.WithFactory(endpoints),
	}
	if mode == output.ModeListener {
		opts = append(opts, receiver.WithFrameHook(listener.WriteFrame))
	}

	dial := file.Dialer(path, file.Options{
		FrameSamples: cfg.Transport.FrameSamples,
		Paced:        true,
		Loop:         cfg.Transport.Loop,
		Metadata:     meta,
		Logger:       a.logger,
	})

	r, err := receiver.New(rc, dial, opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	drv, err := output.NewDriver(r, endpoints, listener, channels, mode)
	if err != nil {
		return err
	}

	dev, err := output.OpenDevice(output.DeviceConfig{
		SampleRate:   rc.SampleRate,
		Channels:     channels,
		PeriodFrames: cfg.Output.PeriodFrames,
	}, drv, a.logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if err := r.Start(gctx); err != nil {
		return err
	}
	if err := dev.Start(); err != nil {
		return err
	}

	if cfg.Metrics.Listen != "" {
		registry := prometheus.NewRegistry()
		if _, err := metrics.NewReceiverMetrics(registry, r); err != nil {
			return err
		}
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Listen, registry)
		})
		a.logger.Info("serving metrics", "listen", cfg.Metrics.Listen)
	}

	drained := func() bool {
		if mode == output.ModeListener {
			return listener.Buffered() == 0
		}
		pending, _ := r.Buffer().Queued()
		return pending == 0 && r.Buffer().Waiting()
	}

	g.Go(func() error {
		defer cancel()
		return a.control(gctx, r, drained)
	})

	a.logger.Info("playing", "file", path, "mode", mode, "channels", channels, "sample_rate", rc.SampleRate)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.logStats(r)

	return nil
}

// control applies speaker changes, reports statistics and returns once
// the producer has finished and drained reports true.
func (a *app) control(ctx context.Context, r *receiver.Receiver, drained func() bool) error {
	update := time.NewTicker(updateInterval)
	defer update.Stop()
	report := time.NewTicker(statsInterval)
	defer report.Stop()

	producer := r.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-producer:
			producer = nil
			if err := r.Err(); err != nil {
				a.logger.Warn("stream ended with error", "error", err)
			}
			a.logger.Info("stream ended, draining buffer")
		case <-update.C:
			if err := r.Update(); err != nil {
				a.logger.Warn("updating speakers", "error", err)
			}
			if producer == nil && drained() {
				return nil
			}
		case <-report.C:
			a.logStats(r)
		}
	}
}

func (a *app) logStats(r *receiver.Receiver) {
	s := r.BufferStatistics()
	a.logger.Info("buffer statistics",
		"buffered", s.BufferedDuration,
		"underruns", s.Underruns,
		"discarded_frames", s.DiscardedFrames,
		"fill_waits", s.FillWaits,
		"virtual_speakers", r.UsingVirtualSpeakers(),
		"levels", r.ChannelLevels(),
	)
}
