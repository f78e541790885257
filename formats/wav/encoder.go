// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// Encode writes interleaved 16-bit PCM samples as a WAV file. The header
// sizes are patched on close, which is why w must be seekable.
func Encode(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	if sampleRate <= 0 || channels <= 0 {
		return ErrInvalidFormat
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrInvalidFormat, len(samples), channels)
	}

	enc := gowav.NewEncoder(w, sampleRate, 16, channels, formatPCM)

	const chunk = 8192
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, 0, min(len(samples), chunk)),
	}

	// The header is only emitted by the first Write.
	if len(samples) == 0 {
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i := 0; i < len(samples); i += chunk {
		end := min(i+chunk, len(samples))

		buf.Data = buf.Data[:0]
		for _, s := range samples[i:end] {
			buf.Data = append(buf.Data, int(s))
		}

		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("writing pcm: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalising wav: %w", err)
	}

	return nil
}
