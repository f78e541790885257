// SPDX-License-Identifier: EPL-2.0

// Package pcm adapts go-audio integer PCM decoders to audio.Source.
package pcm

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audrx/utils"
)

// Reader is the part of the go-audio wav and aiff decoders the source uses.
type Reader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source converts integer PCM read from a go-audio decoder into float32.
type Source struct {
	dec        Reader
	sampleRate int
	channels   int
	bitDepth   int
	// Added to every raw value before normalising; -128 for unsigned 8-bit.
	bias   int
	intBuf *goaudio.IntBuffer
}

// NewSource wraps dec. unsigned marks 8-bit data stored as unsigned bytes.
func NewSource(dec Reader, sampleRate, channels, bitDepth int, unsigned bool) *Source {
	s := &Source{
		dec:        dec,
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
		intBuf: &goaudio.IntBuffer{
			Data:   make([]int, 4096),
			Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		},
	}
	if unsigned && bitDepth == 8 {
		s.bias = -128
	}

	return s
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BitDepth() int   { return s.bitDepth }
func (s *Source) BufSize() int    { return cap(s.intBuf.Data) }
func (s *Source) Close() error    { return nil }

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if cap(s.intBuf.Data) < len(dst) {
		s.intBuf.Data = make([]int, len(dst))
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil && n == 0 {
		return 0, fmt.Errorf("%w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.intBuf.Data[:n] {
		dst[i] = utils.IntToFloat32(v+s.bias, s.bitDepth)
	}

	return n, nil
}

// ReadSeeker returns r itself when it can seek, otherwise it buffers the
// whole stream in memory. The go-audio decoders require seeking.
func ReadSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffering input: %w", err)
	}

	return bytes.NewReader(data), nil
}
