// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/metadata"
	"github.com/ik5/audrx/speaker"
)

// Receiver ties a Transport producer, the frame Buffer and a speaker
// Manager together and exposes the consumer surface used by outputs.
type Receiver struct {
	cfg      Config
	dial     Dialer
	logger   *slog.Logger
	hook     func(*Frame)
	factory  speaker.Factory
	buf      *Buffer
	speakers *speaker.Manager

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error

	// producer state, serialized by ingestMu
	ingestMu   sync.Mutex
	lastMeta   string
	lastLayout *speaker.Layout

	settingsMu      sync.Mutex
	settings        sourceSettings
	settingsLayout  *speaker.Layout
	settingsChanged bool

	virtual atomic.Bool
	epoch   atomic.Uint64
}

// sourceSettings is the stream shape that decides the speaker topology.
type sourceSettings struct {
	sampleRate  int
	channels    int
	hasMeta     bool
	objectBased bool
}

// Option configures a Receiver.
type Option func(*Receiver)

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(r *Receiver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFrameHook registers fn to observe every ingested frame on the
// producer goroutine. The frame must not be retained.
func WithFrameHook(fn func(*Frame)) Option {
	return func(r *Receiver) { r.hook = fn }
}

// WithFactory sets the factory used to create virtual speaker endpoints.
// Without one, sources that need virtual speakers are only metered.
func WithFactory(f speaker.Factory) Option {
	return func(r *Receiver) { r.factory = f }
}

// New validates cfg and returns a stopped receiver. dial may be nil when
// frames are fed through Ingest or Poll only.
func New(cfg Config, dial Dialer, opts ...Option) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	r := &Receiver{
		cfg:    cfg,
		dial:   dial,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.buf = NewBuffer(cfg, r.logger)
	r.speakers = speaker.NewManager(r.factory, cfg.SpeakerDistance, speaker.WithLogger(r.logger))
	r.epoch.Store(math.MaxUint64)

	return r, nil
}

// Config returns the effective configuration.
func (r *Receiver) Config() Config { return r.cfg }

// Buffer exposes the underlying frame buffer.
func (r *Receiver) Buffer() *Buffer { return r.buf }

// Speakers exposes the virtual speaker manager.
func (r *Receiver) Speakers() *speaker.Manager { return r.speakers }

// Start launches the producer goroutine. It runs until ctx is cancelled,
// Stop is called or the transport reports io.EOF.
func (r *Receiver) Start(ctx context.Context) error {
	if r.dial == nil {
		return ErrNoDialer
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	r.wg.Add(1)
	go r.run(ctx, r.done)

	return nil
}

// Stop cancels the producer and waits for it to close its transport.
func (r *Receiver) Stop() {
	r.runMu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.runMu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Restart stops the producer, drops all buffered audio, clears the
// statistics and starts it again.
func (r *Receiver) Restart(ctx context.Context) error {
	r.Stop()
	r.buf.Reset()
	r.buf.stats.reset()

	return r.Start(ctx)
}

// Close stops the producer and closes every speaker endpoint.
func (r *Receiver) Close() error {
	r.Stop()
	return r.speakers.Close()
}

// Done is closed when the current producer goroutine exits. It is nil
// before the first Start.
func (r *Receiver) Done() <-chan struct{} {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	return r.done
}

// Err returns the last transport error seen by the producer.
func (r *Receiver) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	return r.err
}

func (r *Receiver) setErr(err error) {
	r.errMu.Lock()
	r.err = err
	r.errMu.Unlock()
}

func (r *Receiver) run(ctx context.Context, done chan struct{}) {
	defer r.wg.Done()
	defer close(done)

	var t Transport
	defer func() {
		if t != nil {
			if err := t.Close(); err != nil {
				r.logger.Warn("closing transport", "error", err)
			}
		}
	}()

	for ctx.Err() == nil {
		if t == nil {
			var err error
			t, err = r.dial(ctx)
			if err != nil {
				t = nil
				r.setErr(fmt.Errorf("dial transport: %w", err))
				r.logger.Warn("cannot open transport, retrying", "error", err, "delay", r.cfg.RetryDelay)
				if !sleep(ctx, r.cfg.RetryDelay) {
					return
				}
				continue
			}
			r.logger.Debug("transport opened")
		}

		err := r.Poll(ctx, t)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			r.logger.Info("transport reached end of stream")
			return
		case ctx.Err() != nil:
			return
		default:
			r.setErr(err)
			r.logger.Warn("capture failed, reopening transport", "error", err)
			if cerr := t.Close(); cerr != nil {
				r.logger.Warn("closing transport", "error", cerr)
			}
			t = nil
			if !sleep(ctx, r.cfg.RetryDelay) {
				return
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Poll captures at most one frame from t, ingests it and releases it. It
// returns nil when no frame arrived within the poll timeout.
func (r *Receiver) Poll(ctx context.Context, t Transport) error {
	f, err := t.Capture(ctx, r.cfg.PollTimeout)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return fmt.Errorf("capture frame: %w", err)
	}
	if f == nil {
		return nil
	}
	defer t.Release(f)

	r.Ingest(f)

	return nil
}

// Ingest parses the frame metadata, records stream changes for the next
// Update and hands the frame to the buffer. Malformed metadata is treated
// as absent.
func (r *Receiver) Ingest(f *Frame) bool {
	if err := f.Validate(); err != nil {
		r.logger.Debug("dropping frame", "error", err)
		return false
	}

	r.ingestMu.Lock()
	layout := r.parseMetadataLocked(f.Metadata)
	r.ingestMu.Unlock()

	r.noteSettings(f, layout)
	ok := r.buf.Ingest(f, layout)

	if r.hook != nil {
		r.hook(f)
	}

	return ok
}

// parseMetadataLocked parses doc, reusing the previous result while the
// document does not change.
func (r *Receiver) parseMetadataLocked(doc string) *speaker.Layout {
	if doc == r.lastMeta {
		return r.lastLayout
	}
	r.lastMeta = doc
	r.lastLayout = nil

	if doc == "" {
		return nil
	}

	layout, err := metadata.Parse(doc)
	if err != nil {
		r.logger.Warn("ignoring malformed audio metadata", "error", err)
		return nil
	}
	if layout.Len() == 0 && !layout.ObjectBased {
		return nil
	}

	r.lastLayout = &layout

	return r.lastLayout
}

func (r *Receiver) noteSettings(f *Frame, layout *speaker.Layout) {
	s := sourceSettings{
		sampleRate:  f.SampleRate,
		channels:    f.Channels,
		hasMeta:     layout != nil,
		objectBased: layout != nil && layout.ObjectBased,
	}

	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()

	if s == r.settings {
		return
	}

	r.settings = s
	r.settingsChanged = true
	r.settingsLayout = nil
	if layout != nil {
		clone := layout.Clone()
		r.settingsLayout = &clone
	}
}

// Update is the control tick. It rebuilds the speaker topology after a
// stream change and applies geometry that reached the head of the buffer,
// every cycle for object-based streams.
func (r *Receiver) Update() error {
	r.settingsMu.Lock()
	changed := r.settingsChanged
	s := r.settings
	layout := r.settingsLayout
	r.settingsChanged = false
	r.settingsMu.Unlock()

	var errs []error

	if changed {
		if err := r.resetSpeakers(s, layout); err != nil {
			errs = append(errs, err)
		}
	}

	if l, ok := r.buf.TakeLayout(); ok && r.virtual.Load() {
		if _, err := r.speakers.ApplyLayout(l); err != nil {
			errs = append(errs, fmt.Errorf("apply speaker layout: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (r *Receiver) resetSpeakers(s sourceSettings, layout *speaker.Layout) error {
	device := r.cfg.DeviceChannels

	if layout == nil && (s.channels == device || (s.channels < device && !r.cfg.CreateVirtualSpeakers)) {
		r.speakers.Park()
		r.virtual.Store(false)
		r.logger.Info("source matches device, using passthrough",
			"channels", s.channels, "sample_rate", s.sampleRate)

		return nil
	}

	topo, err := r.speakers.Configure(s.channels, layout)
	if err != nil {
		r.virtual.Store(false)
		return fmt.Errorf("configure virtual speakers: %w", err)
	}

	r.virtual.Store(true)
	r.logger.Debug("source routed to virtual speakers",
		"topology", topo.String(), "channels", s.channels, "sample_rate", s.sampleRate)

	return nil
}

// PullPassthroughBlock fills dst with len(dst)/channels interleaved frames.
// dst is silent when false is returned.
func (r *Receiver) PullPassthroughBlock(dst []float32, channels int) bool {
	return r.buf.FillInterleaved(dst, channels)
}

// PullChannelBlock writes source channel into dst for one output cycle.
// The buffer is promoted only on the first call carrying a new epoch, so
// every speaker of a cycle reads the same span of audio.
func (r *Receiver) PullChannelBlock(dst []float32, channel, channels int, mode audio.UpMixMode, epoch uint64) bool {
	if channels <= 0 {
		return false
	}

	if prev := r.epoch.Load(); prev != epoch && r.epoch.CompareAndSwap(prev, epoch) {
		r.buf.Promote(len(dst)/channels, channels)
	}

	return r.buf.ExtractChannel(dst, channel, channels, mode)
}

// UsingVirtualSpeakers reports whether the current stream is routed through
// virtual speakers rather than passthrough.
func (r *Receiver) UsingVirtualSpeakers() bool { return r.virtual.Load() }

// ActiveChannels returns the source channels of the active speakers. The
// slice is shared and must not be modified.
func (r *Receiver) ActiveChannels() []int { return r.speakers.ActiveChannels() }

// BufferStatistics returns a snapshot of the buffer counters.
func (r *Receiver) BufferStatistics() Statistics { return r.buf.Statistics() }

// CurrentSpeakerPositions returns the positions of the active virtual
// speakers, or nil.
func (r *Receiver) CurrentSpeakerPositions() []speaker.Vec3 { return r.speakers.Positions() }

// ReceivedSpeakerPositions returns the positions declared by the stream
// metadata last played, or nil.
func (r *Receiver) ReceivedSpeakerPositions() []speaker.Vec3 { return r.buf.ReceivedPositions() }

// ChannelLevels returns a copy of the per-channel peak levels.
func (r *Receiver) ChannelLevels() []float32 { return r.buf.Levels() }

// NoteVideoFrame records the arrival time of a video frame for transports
// that carry both.
func (r *Receiver) NoteVideoFrame() { r.buf.stats.noteVideo(time.Now()) }

// SourceChannels returns the channel count of the last ingested frame.
func (r *Receiver) SourceChannels() int {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()

	return r.settings.channels
}
