package control

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Pitch trigger and pitch map limits.
const (
	MinPitchHz       = 20.0
	MaxPitchHz       = 4000.0
	MaxPitchTolCents = 1200.0
	MaxPitchCooldown = 60 * time.Second

	MinPitchMapScale = 0.1
	MaxPitchMapScale = 2.0
)

// PitchTrigger drops a marker when the detected pitch comes within a number
// of cents of a target.
type PitchTrigger struct {
	Armed    bool          `json:"armed"`
	TargetHz float64       `json:"target_hz"`
	MinConf  float64       `json:"conf"`
	TolCents float64       `json:"tol_cents"`
	Cooldown time.Duration `json:"-"`

	lastHit time.Time
}

// DefaultPitchTrigger returns a disarmed trigger aimed at A4.
func DefaultPitchTrigger() PitchTrigger {
	return PitchTrigger{
		TargetHz: 440,
		MinConf:  0.3,
		TolCents: 50,
		Cooldown: 1200 * time.Millisecond,
	}
}

// clamp brings every field into its valid range.
func (p *PitchTrigger) clamp() {
	p.TargetHz = clampFloat(p.TargetHz, MinPitchHz, MaxPitchHz)
	p.MinConf = clampFloat(p.MinConf, 0, 1)
	p.TolCents = clampFloat(p.TolCents, 0, MaxPitchTolCents)
	p.Cooldown = clampDuration(p.Cooldown, 0, MaxPitchCooldown)
}

// Check reports whether the given reading fires the trigger at now. A hit
// starts the cooldown.
func (p *PitchTrigger) Check(now time.Time, hz, conf float64) bool {
	if !p.Armed || hz <= 0 || conf < p.MinConf {
		return false
	}
	if !p.lastHit.IsZero() && now.Sub(p.lastHit) <= p.Cooldown {
		return false
	}
	if math.Abs(Cents(hz, p.TargetHz)) > p.TolCents {
		return false
	}
	p.lastHit = now
	return true
}

// Cents returns the distance from ref to hz in cents.
func Cents(hz, ref float64) float64 {
	return 1200 * math.Log2(hz/ref)
}

// PitchMap drives the audio bar length from the detected pitch.
type PitchMap struct {
	Enabled bool    `json:"enable"`
	Scale   float64 `json:"scale"`
	MinHz   float64 `json:"min"`
	MaxHz   float64 `json:"max"`
}

// DefaultPitchMap returns a disabled map spanning A2 to A5.
func DefaultPitchMap() PitchMap {
	return PitchMap{
		Scale: 1,
		MinHz: 110,
		MaxHz: 880,
	}
}

func (m *PitchMap) clamp() {
	m.Scale = clampFloat(m.Scale, MinPitchMapScale, MaxPitchMapScale)
	m.MinHz = clampFloat(m.MinHz, MinPitchHz, MaxPitchHz)
	m.MaxHz = clampFloat(m.MaxHz, MinPitchHz, MaxPitchHz)
}

var noteOffsets = map[byte]int{
	'C': -9, 'D': -7, 'E': -5, 'F': -4, 'G': -2, 'A': 0, 'B': 2,
}

// ParseNote parses a frequency in Hz ("440", "261.6") or a note name in
// scientific pitch notation ("A4", "C#5", "Db3") into Hz.
func ParseNote(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty note")
	}

	if hz, err := strconv.ParseFloat(s, 64); err == nil {
		if hz <= 0 || math.IsInf(hz, 0) || math.IsNaN(hz) {
			return 0, errors.Errorf("invalid frequency %q", s)
		}
		return hz, nil
	}

	semi, ok := noteOffsets[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, errors.Errorf("invalid note %q", s)
	}

	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"), strings.HasPrefix(rest, "+"):
		semi++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		semi--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid octave in note %q", s)
	}
	if octave < -1 || octave > 9 {
		return 0, errors.Errorf("octave out of range in note %q", s)
	}

	// A4 is MIDI note 69 at 440 Hz.
	semitones := (octave-4)*12 + semi
	return 440 * math.Pow(2, float64(semitones)/12), nil
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

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
