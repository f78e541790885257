// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ik5/audrx/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries the state shared by every subcommand.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:          "audrx",
		Short:        "Multichannel audio receiver",
		Long:         "Receive audio frames into a bounded buffer and play them through passthrough or virtual speakers.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "Path to the YAML configuration file")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text, json")
	pf.Int("sample-rate", 0, "Receiver sample rate in Hz")
	pf.Int("max-buffer", 0, "Maximum buffered samples per channel")
	pf.Int("min-buffer", 0, "Samples per channel needed before playback starts")
	pf.Int("channels", 0, "Output device channel count")
	pf.Float64("distance", 0, "Virtual speaker distance from the listener")
	pf.Bool("virtual-speakers", true, "Create virtual speakers when the source is narrower than the device")
	pf.Int("frame-samples", 0, "Samples per channel in each file frame (0 = 20 ms)")

	a.bind(pf, map[string]string{
		"config":                  "config",
		"log.level":               "log-level",
		"log.format":              "log-format",
		"buffer.sample_rate":      "sample-rate",
		"buffer.max_samples":      "max-buffer",
		"buffer.min_samples":      "min-buffer",
		"output.channels":         "channels",
		"speakers.distance":       "distance",
		"speakers.create_virtual": "virtual-speakers",
		"transport.frame_samples": "frame-samples",
	})

	a.v.SetEnvPrefix("AUDRX")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		playCommand(a),
		renderCommand(a),
		inspectCommand(a),
	)

	return root
}

// bind maps config keys to flags of fs.
func (a *app) bind(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		cobra.CheckErr(a.v.BindPFlag(key, fs.Lookup(name)))
	}
}

// load reads the config file, applies flag and environment overrides and
// builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if path := a.v.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}

	a.override(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	slog.SetDefault(a.logger)

	return nil
}

func override[T any](v *viper.Viper, key string, dst *T, get func(string) T) {
	if v.IsSet(key) {
		*dst = get(key)
	}
}

// override copies every key set by a flag or environment variable over
// the file values.
func (a *app) override(cfg *config.Config) {
	v := a.v

	override(v, "buffer.sample_rate", &cfg.Buffer.SampleRate, v.GetInt)
	override(v, "buffer.max_samples", &cfg.Buffer.MaxSamples, v.GetInt)
	override(v, "buffer.min_samples", &cfg.Buffer.MinSamples, v.GetInt)
	override(v, "speakers.create_virtual", &cfg.Speakers.CreateVirtual, v.GetBool)
	if v.IsSet("speakers.distance") {
		cfg.Speakers.Distance = float32(v.GetFloat64("speakers.distance"))
	}
	override(v, "output.mode", &cfg.Output.Mode, v.GetString)
	override(v, "output.channels", &cfg.Output.Channels, v.GetInt)
	override(v, "output.period_frames", &cfg.Output.PeriodFrames, v.GetInt)
	override(v, "transport.frame_samples", &cfg.Transport.FrameSamples, v.GetInt)
	override(v, "transport.loop", &cfg.Transport.Loop, v.GetBool)
	override(v, "transport.metadata_file", &cfg.Transport.MetadataFile, v.GetString)
	override(v, "transport.retry_delay", &cfg.Transport.RetryDelay, v.GetDuration)
	override(v, "metrics.listen", &cfg.Metrics.Listen, v.GetString)
	override(v, "log.level", (*string)(&cfg.Log.Level), v.GetString)
	override(v, "log.format", &cfg.Log.Format, v.GetString)
}
