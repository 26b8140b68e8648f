package audio

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// WAVSource replays a PCM WAV file as a looping Source. The first channel is
// used and the file is decimated or stretched to SampleRate.
type WAVSource struct {
	samples []int
	step    float64
	pos     float64
}

// NewWAVSource decodes the whole WAV stream from r.
func NewWAVSource(r io.ReadSeeker) (*WAVSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode PCM data")
	}

	return newWAVSource(buf, int(dec.BitDepth))
}

func newWAVSource(buf *audio.IntBuffer, bitDepth int) (*WAVSource, error) {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, errors.New("WAV file has no format")
	}

	chans := buf.Format.NumChannels
	if chans < 1 {
		chans = 1
	}

	frames := len(buf.Data) / chans
	if frames == 0 {
		return nil, errors.New("WAV file has no samples")
	}

	// Shift everything into the 12-bit ADC range.
	shift := bitDepth - 12

	samples := make([]int, frames)
	for i := range samples {
		v := buf.Data[i*chans]
		if bitDepth == 8 {
			// 8-bit WAV is unsigned.
			v -= 128
		}
		if shift > 0 {
			v >>= shift
		} else if shift < 0 {
			v <<= -shift
		}
		samples[i] = ADCMidpoint + v
	}

	return &WAVSource{
		samples: samples,
		step:    float64(buf.Format.SampleRate) / SampleRate,
	}, nil
}

// Sample implements Source.
func (s *WAVSource) Sample() int {
	v := s.samples[int(s.pos)]
	s.pos += s.step
	for s.pos >= float64(len(s.samples)) {
		s.pos -= float64(len(s.samples))
	}
	return v
}
