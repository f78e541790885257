// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audrx/audio"
	"github.com/ik5/audrx/utils"
	tflac "github.com/tphakala/flac"
)

// frameReader is the subset of the tphakala decoder used here; tests
// substitute it. Next returns one FLAC frame as interleaved little-endian
// signed samples.
type frameReader interface {
	Next() ([]byte, error)
}

type source struct {
	dec      frameReader
	rate     int
	channels int
	width    int // bytes per sample
	bitDepth int

	frame []byte // undelivered part of the current frame
	eof   bool
}

func (s *source) SampleRate() int { return s.rate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BitDepth() int   { return s.bitDepth }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 * s.channels }

func (s *source) sample(b []byte) int {
	switch s.width {
	case 1:
		return int(int8(b[0]))
	case 2:
		return int(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		return int(v<<8) >> 8
	default:
		return int(int32(binary.LittleEndian.Uint32(b)))
	}
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	written := 0
	for written < len(dst) {
		if len(s.frame) < s.width {
			if s.eof {
				break
			}

			next, err := s.dec.Next()
			if errors.Is(err, io.EOF) {
				s.eof = true
				continue
			}
			if err != nil {
				return written, fmt.Errorf("decode flac frame: %w", err)
			}
			s.frame = next
			continue
		}

		n := min(len(dst)-written, len(s.frame)/s.width)
		for i := range n {
			dst[written+i] = utils.IntToFloat32(s.sample(s.frame[i*s.width:]), s.bitDepth)
		}
		s.frame = s.frame[n*s.width:]
		written += n
	}

	if written == 0 && s.eof {
		return 0, io.EOF
	}

	return written, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := tflac.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFLACFile, err)
	}

	src, err := newSource(dec, dec.SampleRate, dec.NChannels, dec.BitsPerSample)
	if err != nil {
		return nil, err
	}

	return src, nil
}

func newSource(dec frameReader, rate, channels, bitDepth int) (*source, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	return &source{
		dec:      dec,
		rate:     rate,
		channels: channels,
		width:    bitDepth / 8,
		bitDepth: bitDepth,
	}, nil
}
