// SPDX-License-Identifier: EPL-2.0

// Package metrics exposes receiver health as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ik5/audrx/receiver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "audrx"

// Source is the part of a receiver the collector reads on each scrape.
type Source interface {
	BufferStatistics() receiver.Statistics
	ChannelLevels() []float32
	ActiveChannels() []int
	UsingVirtualSpeakers() bool
	SourceChannels() int
}

// ReceiverMetrics is a prometheus.Collector that snapshots a Source at
// scrape time.
type ReceiverMetrics struct {
	src Source

	buffered       *prometheus.Desc
	underruns      *prometheus.Desc
	discarded      *prometheus.Desc
	fillWaits      *prometheus.Desc
	lastAudio      *prometheus.Desc
	lastVideo      *prometheus.Desc
	level          *prometheus.Desc
	activeSpeakers *prometheus.Desc
	virtual        *prometheus.Desc
	channels       *prometheus.Desc
}

// NewReceiverMetrics creates the collector and registers it with registry.
func NewReceiverMetrics(registry prometheus.Registerer, src Source) (*ReceiverMetrics, error) {
	m := &ReceiverMetrics{
		src: src,
		buffered: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "buffer", "buffered_seconds"),
			"Audio queued in the receive buffer", nil, nil),
		underruns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "buffer", "underruns_total"),
			"Times the buffer ran dry", nil, nil),
		discarded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "buffer", "discarded_frames_total"),
			"Frames dropped to keep latency bounded", nil, nil),
		fillWaits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "buffer", "fill_waits_total"),
			"Pulls that found the buffer still filling", nil, nil),
		lastAudio: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "last_audio_frame_timestamp_seconds"),
			"Unix time of the last accepted audio frame", nil, nil),
		lastVideo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "last_video_frame_timestamp_seconds"),
			"Unix time of the last video frame notification", nil, nil),
		level: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "channel", "level"),
			"Peak level of the last block pulled per source channel", []string{"channel"}, nil),
		activeSpeakers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "speakers", "active"),
			"Virtual speakers currently bound to a channel", nil, nil),
		virtual: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "speakers", "virtual"),
			"1 when playback goes through virtual speakers", nil, nil),
		channels: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "receiver", "source_channels"),
			"Channel count of the current stream", nil, nil),
	}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("metrics: register receiver collector: %w", err)
	}

	return m, nil
}

// Describe implements prometheus.Collector.
func (m *ReceiverMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.buffered
	ch <- m.underruns
	ch <- m.discarded
	ch <- m.fillWaits
	ch <- m.lastAudio
	ch <- m.lastVideo
	ch <- m.level
	ch <- m.activeSpeakers
	ch <- m.virtual
	ch <- m.channels
}

// Collect implements prometheus.Collector.
func (m *ReceiverMetrics) Collect(ch chan<- prometheus.Metric) {
	s := m.src.BufferStatistics()

	ch <- prometheus.MustNewConstMetric(m.buffered, prometheus.GaugeValue, s.BufferedSeconds())
	ch <- prometheus.MustNewConstMetric(m.underruns, prometheus.CounterValue, float64(s.Underruns))
	ch <- prometheus.MustNewConstMetric(m.discarded, prometheus.CounterValue, float64(s.DiscardedFrames))
	ch <- prometheus.MustNewConstMetric(m.fillWaits, prometheus.CounterValue, float64(s.FillWaits))
	ch <- prometheus.MustNewConstMetric(m.lastAudio, prometheus.GaugeValue, unixSeconds(s.LastAudioFrame))
	ch <- prometheus.MustNewConstMetric(m.lastVideo, prometheus.GaugeValue, unixSeconds(s.LastVideoFrame))

	for i, v := range m.src.ChannelLevels() {
		ch <- prometheus.MustNewConstMetric(m.level, prometheus.GaugeValue, float64(v), strconv.Itoa(i))
	}

	ch <- prometheus.MustNewConstMetric(m.activeSpeakers, prometheus.GaugeValue, float64(len(m.src.ActiveChannels())))

	virtual := 0.0
	if m.src.UsingVirtualSpeakers() {
		virtual = 1
	}
	ch <- prometheus.MustNewConstMetric(m.virtual, prometheus.GaugeValue, virtual)
	ch <- prometheus.MustNewConstMetric(m.channels, prometheus.GaugeValue, float64(m.src.SourceChannels()))
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.HTTPErrorOnError,
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, registry *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(registry))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("metrics: serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: serve %s: %w", addr, err)
	}

	return nil
}
