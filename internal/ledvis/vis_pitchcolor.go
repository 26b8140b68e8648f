package ledvis

import (
	"math"

	"libdb.so/audioglow/internal/led"
)

const (
	// DefaultPitchMinHz and DefaultPitchMaxHz span A2 to A5.
	DefaultPitchMinHz = 110.0
	DefaultPitchMaxHz = 880.0

	// minPitchConf is the confidence under which the variant falls back to a
	// plain blue volume bar.
	minPitchConf = 0.3
)

// PitchColorVariant draws a volume bar whose hue follows the detected pitch on
// a logarithmic scale.
type PitchColorVariant struct {
	minHz float64
	maxHz float64
}

// NewPitchColor creates a pitch color variant spanning A2 to A5.
func NewPitchColor() PitchColorVariant {
	return PitchColorVariant{
		minHz: DefaultPitchMinHz,
		maxHz: DefaultPitchMaxHz,
	}
}

// Range returns the pitch range mapped onto the hue wheel.
func (p *PitchColorVariant) Range() (minHz, maxHz float64) {
	return p.minHz, p.maxHz
}

// SetRange sets the pitch range mapped onto the hue wheel. Empty or inverted
// ranges are ignored.
func (p *PitchColorVariant) SetRange(minHz, maxHz float64) {
	if minHz <= 0 || maxHz <= minHz {
		return
	}
	p.minHz = minHz
	p.maxHz = maxHz
}

// Hue returns the hue in degrees for the given pitch. Pitches outside the
// range map to 0.
func (p *PitchColorVariant) Hue(hz float64) float64 {
	if hz < p.minHz || hz > p.maxHz {
		return 0
	}
	return 360 * math.Log(hz/p.minHz) / math.Log(p.maxHz/p.minHz)
}

// Render implements Variant.
func (p *PitchColorVariant) Render(f *Frame) {
	active := f.activeLength(f.Analysis.Level())

	hz := f.Analysis.PitchHz()
	if hz <= 0 || f.Analysis.PitchConf() < minPitchConf {
		fillBar(f.Path, active, led.Blue)
		return
	}

	fillBar(f.Path, active, led.HSV(p.Hue(hz), 1, 1))
}
