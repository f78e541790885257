// SPDX-License-Identifier: EPL-2.0

package audrx

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/receiver"
	"github.com/ik5/audrx/transport/file"
	"github.com/ik5/audrx/utils"
)

// Render opens the audio file at path and plays it through a receiver
// built from cfg, faster than real time. The returned source yields the
// passthrough output as interleaved samples at cfg.SampleRate with the
// requested number of channels; zero keeps the file's channel count.
//
// The caller must Close the source.
func Render(ctx context.Context, path string, cfg receiver.Config, channels int, opts ...receiver.Option) (*receiver.OfflineSource, error) {
	t, err := file.Open(path, file.Options{})
	if err != nil {
		return nil, err
	}

	r, err := receiver.New(cfg, nil, opts...)
	if err != nil {
		return nil, errors.Join(err, t.Close())
	}

	if channels <= 0 {
		channels = t.Channels()
	}

	return receiver.NewOfflineSource(ctx, r, t, channels), nil
}

// Collect16 reads src until io.EOF and returns everything as 16-bit PCM.
func Collect16(src audio.Source, bufferSize int) ([]int16, error) {
	if bufferSize <= 0 {
		bufferSize = src.BufSize()
	}
	bufferSize = max(bufferSize-bufferSize%src.Channels(), src.Channels())

	pcm16 := make([]int16, 0, src.SampleRate()*src.Channels())
	buf := make([]float32, bufferSize)

	for {
		n, err := src.ReadSamples(buf)
		for _, x := range buf[:n] {
			pcm16 = append(pcm16, utils.Float32ToInt16(x))
		}

		if errors.Is(err, io.EOF) {
			return pcm16, nil
		}
		if err != nil {
			return pcm16, fmt.Errorf("read samples: %w", err)
		}
	}
}

// RenderToMono16 renders path through a receiver, resamples the result to
// targetRate and mixes it down to mono 16-bit PCM. It returns the samples
// and their rate.
func RenderToMono16(ctx context.Context, path string, cfg receiver.Config, targetRate, bufferSize int) ([]int16, int, error) {
	src, err := Render(ctx, path, cfg, 0)
	if err != nil {
		return nil, 0, err
	}

	var out audio.Source = src
	if targetRate > 0 && targetRate != src.SampleRate() {
		out = audio.NewResampler(out, targetRate)
	}
	mono := audio.NewMonoMixer(out)
	defer mono.Close()

	pcm16, err := Collect16(mono, bufferSize)

	return pcm16, mono.SampleRate(), err
}
