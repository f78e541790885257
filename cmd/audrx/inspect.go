// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ik5/audrx/metadata"
	"github.com/ik5/audrx/speaker"
	"github.com/ik5/audrx/transport/file"
	"github.com/spf13/cobra"
)

func inspectCommand(a *app) *cobra.Command {
	var metaPath string

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Describe a file and the speaker layout it would get",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspect(cmd.Context(), cmd.OutOrStdout(), args[0], metaPath)
		},
	}

	cmd.Flags().StringVar(&metaPath, "metadata", "", "XML speaker layout to apply")

	return cmd
}

type fileSummary struct {
	rate     int
	channels int
	frames   int
	samples  int
}

func (s fileSummary) duration() time.Duration {
	return time.Duration(s.samples) * time.Second / time.Duration(s.rate)
}

func summarize(ctx context.Context, t *file.Transport) (fileSummary, error) {
	s := fileSummary{rate: t.SampleRate(), channels: t.Channels()}

	for {
		f, err := t.Capture(ctx, 0)
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, err
		}
		if f == nil {
			continue
		}

		s.frames++
		s.samples += f.SamplesPerChannel
		t.Release(f)
	}
}

// layoutFor resolves the positions the speaker manager would use.
func layoutFor(channels int, distance float32, meta *speaker.Layout) (speaker.Topology, []speaker.Vec3) {
	if meta != nil && meta.Len() > 0 {
		return speaker.MetadataDefined, meta.Positions
	}

	topo := speaker.ForChannels(channels)
	if pos := speaker.Template(topo, distance); pos != nil {
		return topo, pos
	}

	return topo, speaker.Circle(channels, distance)
}

func (a *app) inspect(ctx context.Context, w io.Writer, path, metaPath string) error {
	t, err := file.Open(path, file.Options{
		FrameSamples: a.cfg.Transport.FrameSamples,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	defer t.Close()

	doc, err := readMetadata(metaPath)
	if err != nil {
		return err
	}

	var meta *speaker.Layout
	if doc != "" {
		layout, _ := metadata.Parse(doc)
		meta = &layout
	}

	s, err := summarize(ctx, t)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "file:\t%s\n", path)
	fmt.Fprintf(tw, "sample rate:\t%d Hz\n", s.rate)
	fmt.Fprintf(tw, "channels:\t%d\n", s.channels)
	fmt.Fprintf(tw, "duration:\t%s\n", s.duration())
	fmt.Fprintf(tw, "frames:\t%d\n", s.frames)

	rc := a.cfg.ReceiverConfig()
	passthrough := meta == nil && (s.channels == rc.DeviceChannels ||
		(s.channels < rc.DeviceChannels && !rc.CreateVirtualSpeakers))
	if passthrough {
		fmt.Fprintf(tw, "playback:\tpassthrough to %d channels\n", rc.DeviceChannels)
		return tw.Flush()
	}

	topo, positions := layoutFor(s.channels, rc.SpeakerDistance, meta)
	fmt.Fprintf(tw, "playback:\tvirtual speakers (%s)\n", topo)
	for i, p := range positions {
		fmt.Fprintf(tw, "  speaker %d:\t%s\n", i, p)
	}

	return tw.Flush()
}
