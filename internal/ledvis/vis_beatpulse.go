package ledvis

import (
	"time"

	"libdb.so/audioglow/internal/led"
)

const (
	// DefaultBeatThreshold is the relative jump over the reference level that
	// counts as a beat.
	DefaultBeatThreshold = 0.3
	// DefaultBeatCooldown is the minimum time between two beats.
	DefaultBeatCooldown = 200 * time.Millisecond

	MinBeatThreshold = 0.1
	MaxBeatThreshold = 1.0
	MaxBeatCooldown  = 10 * time.Second

	beatDecay = 0.05
	// beatRefWeight is the weight of the current level in the reference.
	beatRefWeight = 0.8
)

// BeatPulseVariant flashes the whole path when the level jumps above its
// recent reference and lets the flash fade out.
type BeatPulseVariant struct {
	threshold float64
	cooldown  time.Duration

	ref       float64
	intensity float64
	lastBeat  time.Time
}

// NewBeatPulse creates a beat pulse with the default threshold and cooldown.
func NewBeatPulse() BeatPulseVariant {
	return BeatPulseVariant{
		threshold: DefaultBeatThreshold,
		cooldown:  DefaultBeatCooldown,
	}
}

// Threshold returns the relative beat threshold.
func (b *BeatPulseVariant) Threshold() float64 { return b.threshold }

// SetThreshold sets the relative beat threshold, clamped to
// [MinBeatThreshold, MaxBeatThreshold].
func (b *BeatPulseVariant) SetThreshold(v float64) {
	b.threshold = clampFloat(v, MinBeatThreshold, MaxBeatThreshold)
}

// Cooldown returns the minimum time between two beats.
func (b *BeatPulseVariant) Cooldown() time.Duration { return b.cooldown }

// SetCooldown sets the minimum time between two beats, clamped to
// [0, MaxBeatCooldown].
func (b *BeatPulseVariant) SetCooldown(d time.Duration) {
	switch {
	case d < 0:
		d = 0
	case d > MaxBeatCooldown:
		d = MaxBeatCooldown
	}
	b.cooldown = d
}

// Intensity returns the current pulse intensity in [0, 1].
func (b *BeatPulseVariant) Intensity() float64 { return b.intensity }

// Render implements Variant.
func (b *BeatPulseVariant) Render(f *Frame) {
	level := f.Analysis.Level()

	beat := false
	if b.lastBeat.IsZero() || f.Now.Sub(b.lastBeat) > b.cooldown {
		if level > b.ref*(1+b.threshold) {
			beat = true
			b.lastBeat = f.Now
			b.intensity = 1
		}
	}

	if !beat && b.intensity > 0 {
		b.intensity -= beatDecay
		if b.intensity < 0 {
			b.intensity = 0
		}
	}

	b.ref = level*beatRefWeight + b.ref*(1-beatRefWeight)

	var color led.RGBColor
	switch {
	case b.intensity > 0.7:
		color = led.Red
	case b.intensity > 0.3:
		color = led.Green
	default:
		color = led.Blue
	}

	color = color.Scale(uint8(b.intensity * 255))
	if color == led.Black {
		return
	}

	fillBar(f.Path, f.Path.Size(), color)
}
