// SPDX-License-Identifier: EPL-2.0

// Package config loads the audrx YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ik5/audrx/output"
	"github.com/ik5/audrx/receiver"
	"github.com/ik5/audrx/speaker"
	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to a slog level; unknown values are info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root of the configuration file.
type Config struct {
	Buffer    BufferConfig    `yaml:"buffer"`
	Speakers  SpeakersConfig  `yaml:"speakers"`
	Output    OutputConfig    `yaml:"output"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// BufferConfig sizes the receiver buffer. Zero sample counts are derived
// from the rate: 200 ms maximum and 100 ms minimum.
type BufferConfig struct {
	SampleRate int `yaml:"sample_rate"`
	MaxSamples int `yaml:"max_samples"`
	MinSamples int `yaml:"min_samples"`
}

type SpeakersConfig struct {
	Distance      float32 `yaml:"distance"`
	CreateVirtual bool    `yaml:"create_virtual"`
}

type OutputConfig struct {
	Mode         string `yaml:"mode"`
	Channels     int    `yaml:"channels"`
	PeriodFrames int    `yaml:"period_frames"`
}

type TransportConfig struct {
	FrameSamples int           `yaml:"frame_samples"`
	Loop         bool          `yaml:"loop"`
	MetadataFile string        `yaml:"metadata_file"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level  LogLevel `yaml:"level"`
	Format string   `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Buffer: BufferConfig{SampleRate: 48000},
		Speakers: SpeakersConfig{
			Distance:      speaker.DefaultDistance,
			CreateVirtual: true,
		},
		Output: OutputConfig{
			Mode:         output.ModeAuto.String(),
			Channels:     2,
			PeriodFrames: 480,
		},
		Transport: TransportConfig{RetryDelay: receiver.DefaultRetryDelay},
		Log:       LogConfig{Level: LogInfo, Format: "text"},
	}
}

// Load reads the YAML configuration file at path and returns a validated
// Config. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Buffer.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("buffer.sample_rate must be positive, got %d", cfg.Buffer.SampleRate))
	}
	if cfg.Buffer.MaxSamples < 0 || cfg.Buffer.MinSamples < 0 {
		errs = append(errs, errors.New("buffer.max_samples and buffer.min_samples must not be negative"))
	}
	if cfg.Buffer.MaxSamples > 0 && cfg.Buffer.MinSamples > cfg.Buffer.MaxSamples {
		errs = append(errs, fmt.Errorf("buffer.min_samples %d exceeds buffer.max_samples %d",
			cfg.Buffer.MinSamples, cfg.Buffer.MaxSamples))
	}

	if cfg.Speakers.Distance <= 0 {
		errs = append(errs, fmt.Errorf("speakers.distance must be positive, got %g", cfg.Speakers.Distance))
	}

	if _, err := output.ParseMode(cfg.Output.Mode); err != nil {
		errs = append(errs, fmt.Errorf("output.mode: %w", err))
	}
	if cfg.Output.Channels <= 0 {
		errs = append(errs, fmt.Errorf("output.channels must be positive, got %d", cfg.Output.Channels))
	}
	if cfg.Output.PeriodFrames < 0 {
		errs = append(errs, fmt.Errorf("output.period_frames must not be negative, got %d", cfg.Output.PeriodFrames))
	}

	if cfg.Transport.FrameSamples < 0 {
		errs = append(errs, fmt.Errorf("transport.frame_samples must not be negative, got %d", cfg.Transport.FrameSamples))
	}
	// Playback starts with three frames queued, which must fit under Max.
	if maxSamples := cfg.maxSamples(); maxSamples > 0 && cfg.Transport.FrameSamples*3 > maxSamples {
		errs = append(errs, fmt.Errorf("transport.frame_samples %d too large: three frames exceed buffer.max_samples %d",
			cfg.Transport.FrameSamples, maxSamples))
	}
	if cfg.Transport.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("transport.retry_delay must not be negative, got %s", cfg.Transport.RetryDelay))
	}

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	return errors.Join(errs...)
}

// maxSamples is buffer.max_samples, or rate/5 when unset.
func (c *Config) maxSamples() int {
	if c.Buffer.MaxSamples > 0 {
		return c.Buffer.MaxSamples
	}

	return c.Buffer.SampleRate / 5
}

// ReceiverConfig converts the buffer and speaker sections.
func (c *Config) ReceiverConfig() receiver.Config {
	rc := receiver.DefaultConfig(c.Buffer.SampleRate)
	if c.Buffer.MaxSamples > 0 {
		rc.MaxBufferSamples = c.Buffer.MaxSamples
	}
	if c.Buffer.MinSamples > 0 {
		rc.MinBufferSamples = c.Buffer.MinSamples
	} else {
		rc.MinBufferSamples = min(rc.MinBufferSamples, rc.MaxBufferSamples)
	}
	rc.DeviceChannels = c.Output.Channels
	rc.CreateVirtualSpeakers = c.Speakers.CreateVirtual
	rc.SpeakerDistance = c.Speakers.Distance
	if c.Transport.RetryDelay > 0 {
		rc.RetryDelay = c.Transport.RetryDelay
	}

	return rc
}

// OutputMode returns the parsed output mode.
func (c *Config) OutputMode() output.Mode {
	m, _ := output.ParseMode(c.Output.Mode)
	return m
}

// Logger builds the structured logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Log.Level.Level()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
