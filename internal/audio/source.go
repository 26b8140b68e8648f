package audio

import (
	"math"
	"sync"
)

// Silence is a Source that always reads the ADC midpoint.
var Silence Source = SourceFunc(func() int { return ADCMidpoint })

// Sine generates a pure tone at SampleRate.
type Sine struct {
	Hz        float64
	Amplitude int

	phase float64
}

// NewSine creates a sine source of the given frequency and peak amplitude in
// ADC counts.
func NewSine(hz float64, amplitude int) *Sine {
	return &Sine{Hz: hz, Amplitude: amplitude}
}

// Sample implements Source.
func (s *Sine) Sample() int {
	v := ADCMidpoint + int(math.Round(float64(s.Amplitude)*math.Sin(s.phase)))
	s.phase = math.Mod(s.phase+2*math.Pi*s.Hz/SampleRate, 2*math.Pi)
	return v
}

// Stream is a Source fed from another goroutine, such as a capture callback or
// a serial reader. It keeps the most recent samples in a ring buffer and reads
// ADCMidpoint when it runs dry.
type Stream struct {
	mu   sync.Mutex
	buf  []int
	r, n int
}

// NewStream creates a stream buffering up to size samples.
func NewStream(size int) *Stream {
	if size < SampleCount {
		size = SampleCount
	}
	return &Stream{buf: make([]int, size)}
}

// Push appends raw samples, overwriting the oldest ones when full.
func (s *Stream) Push(samples ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range samples {
		w := (s.r + s.n) % len(s.buf)
		s.buf[w] = v
		if s.n < len(s.buf) {
			s.n++
		} else {
			s.r = (s.r + 1) % len(s.buf)
		}
	}
}

// Len returns the number of buffered samples.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Sample implements Source.
func (s *Stream) Sample() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.n == 0 {
		return ADCMidpoint
	}
	v := s.buf[s.r]
	s.r = (s.r + 1) % len(s.buf)
	s.n--
	return v
}

// FromInt16 converts a signed 16-bit PCM sample to a raw ADC reading.
func FromInt16(v int16) int {
	return ADCMidpoint + int(v)>>4
}
