// Package ledvis draws audio visualizations along a led.Path.
package ledvis

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"libdb.so/audioglow/internal/led"
)

// Analysis is the read side of an audio analyzer. All values except PitchHz
// are in [0, 1].
type Analysis interface {
	Level() float64
	Low() float64
	Mid() float64
	High() float64
	PitchHz() float64
	PitchConf() float64
}

// Kind is a visualization variant.
type Kind uint8

const (
	// VUMeter draws a bar whose length follows the volume, colored with a
	// blue to red gradient.
	VUMeter Kind = iota
	// Spectrum splits the path into three bars for the low, mid and high
	// bands.
	Spectrum
	// BeatPulse flashes the whole path on every detected beat.
	BeatPulse
	// PitchColor draws a volume bar colored by the detected pitch.
	PitchColor

	numKinds
)

// NumKinds is the number of visualization variants.
const NumKinds = int(numKinds)

// ClampKind converts an arbitrary integer into a valid Kind.
func ClampKind(v int) Kind {
	switch {
	case v < 0:
		return VUMeter
	case v >= NumKinds:
		return Kind(NumKinds - 1)
	default:
		return Kind(v)
	}
}

// Next returns the variant after k, wrapping around.
func (k Kind) Next() Kind {
	return Kind((int(k) + 1) % NumKinds)
}

func (k Kind) String() string {
	switch k {
	case VUMeter:
		return "vu"
	case Spectrum:
		return "spectrum"
	case BeatPulse:
		return "beat"
	case PitchColor:
		return "pitch"
	default:
		return "unknown"
	}
}

// ParseKind parses the name returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := Kind(0); k < numKinds; k++ {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown visualizer %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

const (
	// DefaultSensitivity is the level multiplier of a new Visualizer.
	DefaultSensitivity = 1.5
	// MinSensitivity and MaxSensitivity bound the level multiplier.
	MinSensitivity = 0.1
	MaxSensitivity = 5.0
)

// Frame is everything a variant needs to draw once.
type Frame struct {
	Path     *led.Path
	Analysis Analysis
	Now      time.Time
	// Sensitivity multiplies the levels read from Analysis.
	Sensitivity float64
	// Length overrides the level derived bar length when non-negative.
	Length int
}

// activeLength returns the number of lit positions of a bar driven by level.
func (f *Frame) activeLength(level float64) int {
	n := f.Path.Size()
	if f.Length >= 0 {
		return min(f.Length, n)
	}
	return int(clamp01(level*f.Sensitivity) * float64(n))
}

// Variant is one visualization.
type Variant interface {
	Render(f *Frame)
}

// Visualizer holds one instance of every variant and draws the selected one.
type Visualizer struct {
	kind        Kind
	sensitivity float64

	vu       VUMeterVariant
	spectrum SpectrumVariant
	beat     BeatPulseVariant
	pitch    PitchColorVariant
}

// NewVisualizer creates a visualizer showing the VU meter.
func NewVisualizer() *Visualizer {
	return &Visualizer{
		kind:        VUMeter,
		sensitivity: DefaultSensitivity,
		beat:        NewBeatPulse(),
		pitch:       NewPitchColor(),
	}
}

// Kind returns the selected variant.
func (v *Visualizer) Kind() Kind { return v.kind }

// SetKind selects the variant to draw. Out of range values are clamped.
func (v *Visualizer) SetKind(k Kind) { v.kind = ClampKind(int(k)) }

// Sensitivity returns the level multiplier.
func (v *Visualizer) Sensitivity() float64 { return v.sensitivity }

// SetSensitivity sets the level multiplier, clamped to [MinSensitivity,
// MaxSensitivity].
func (v *Visualizer) SetSensitivity(s float64) {
	v.sensitivity = clampFloat(s, MinSensitivity, MaxSensitivity)
}

// BeatPulse returns the beat pulse variant for tuning.
func (v *Visualizer) BeatPulse() *BeatPulseVariant { return &v.beat }

// PitchColor returns the pitch color variant for tuning.
func (v *Visualizer) PitchColor() *PitchColorVariant { return &v.pitch }

// Variant returns the selected variant.
func (v *Visualizer) Variant() Variant {
	switch v.kind {
	case Spectrum:
		return &v.spectrum
	case BeatPulse:
		return &v.beat
	case PitchColor:
		return &v.pitch
	default:
		return &v.vu
	}
}

// Render draws the selected variant. length overrides the bar length of the
// VU and pitch variants when non-negative.
func (v *Visualizer) Render(path *led.Path, a Analysis, now time.Time, length int) {
	if path.Size() == 0 {
		return
	}

	f := Frame{
		Path:        path,
		Analysis:    a,
		Now:         now,
		Sensitivity: v.sensitivity,
		Length:      length,
	}
	v.Variant().Render(&f)
}

// fillBar paints the first n path positions with c.
func fillBar(path *led.Path, n int, c led.RGBColor) {
	canvas := path.Canvas()
	for i := 0; i < n; i++ {
		canvas.SetPixel(path.Node(i), c)
	}
}

func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
