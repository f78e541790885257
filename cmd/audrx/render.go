// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ik5/audrx"
	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/formats/wav"
	"github.com/ik5/audrx/receiver"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	rate  int
	width int
	mono  bool
}

func renderCommand(a *app) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render [input] [output.wav]",
		Short: "Render an audio file through the receiver to WAV",
		Long:  "Push a file through the receiver buffer faster than real time and write the passthrough output as 16-bit WAV.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd.Context(), args[0], args[1], opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.rate, "rate", 0, "Output sample rate (0 keeps the receiver rate)")
	f.IntVar(&opts.width, "width", 0, "Output channel count (0 keeps the source)")
	f.BoolVar(&opts.mono, "mono", false, "Mix the output down to mono")

	return cmd
}

func (a *app) render(ctx context.Context, in, out string, opts renderOptions) (err error) {
	src, err := audrx.Render(ctx, in, a.cfg.ReceiverConfig(), opts.width, receiver.WithLogger(a.logger))
	if err != nil {
		return err
	}

	var pipeline audio.Source = src
	if opts.rate > 0 && opts.rate != src.SampleRate() {
		pipeline = audio.NewResampler(pipeline, opts.rate)
	}
	if opts.mono {
		pipeline = audio.NewMonoMixer(pipeline)
	}
	defer func() {
		if cerr := pipeline.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	pcm, err := audrx.Collect16(pipeline, 4096)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := wav.Encode(f, pipeline.SampleRate(), pipeline.Channels(), pcm); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	frames := len(pcm) / pipeline.Channels()
	a.logger.Info("rendered",
		"input", in,
		"output", out,
		"sample_rate", pipeline.SampleRate(),
		"channels", pipeline.Channels(),
		"frames", frames,
	)

	return nil
}
