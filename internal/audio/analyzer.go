// Package audio samples one audio channel and extracts a smoothed level, three
// band energies and a pitch estimate from it.
package audio

import (
	"math"
	"math/cmplx"
	"time"

	"github.com/noriah/catnip/dsp/window"
	"github.com/noriah/catnip/fft"
	"gonum.org/v1/gonum/floats"
)

const (
	// SampleCount is the number of samples in one analysis frame.
	SampleCount = 128
	// SampleRate is the rate the source is assumed to be sampled at.
	SampleRate = 8000
	// ADCMax is the largest raw reading of the 12-bit ADC.
	ADCMax = 4095
	// ADCMidpoint is the raw reading of a silent input.
	ADCMidpoint = 2048
	// TickInterval is the minimum time between two analysis frames.
	TickInterval = 2500 * time.Microsecond

	// MinSensitivity and MaxSensitivity bound the band sensitivity.
	MinSensitivity = 0.1
	MaxSensitivity = 5.0

	halfRange = ADCMidpoint

	levelWeight = 0.2
	bandWeight  = 0.15
	pitchWeight = 0.3
	pitchDecay  = 0.95

	pitchMinHz = 80
	pitchMaxHz = 1000
	// pitchAccept is the confidence a frame must beat to update the pitch.
	pitchAccept = 0.3
	// quietLevel is the level under which confidence is attenuated.
	quietLevel = 0.05

	spectrumSize = SampleCount/2 + 1
)

// Band bin ranges, [lo, hi).
var (
	lowBins  = [2]int{2, 8}
	midBins  = [2]int{8, 25}
	highBins = [2]int{25, SampleCount / 2}
)

// Source is the analyzer input boundary. Sample returns one raw 12-bit ADC
// reading centered around ADCMidpoint. It is called exactly SampleCount
// times per analysis frame.
type Source interface {
	Sample() int
}

// SourceFunc adapts a function to a Source.
type SourceFunc func() int

// Sample implements Source.
func (f SourceFunc) Sample() int { return f() }

// Analyzer owns the analysis frame and the smoothed features computed from
// it. All accessors are side-effect free reads of the latest state. An
// Analyzer must not be copied after creation.
type Analyzer struct {
	src      Source
	lastTick time.Time

	frame     [SampleCount]float64
	windowed  [SampleCount]float64
	spectrum  [spectrumSize]complex128
	magnitude [spectrumSize]float64
	plan      *fft.Plan

	level       float64
	low         float64
	mid         float64
	high        float64
	pitchHz     float64
	pitchConf   float64
	sensitivity float64
}

// NewAnalyzer creates an analyzer reading from src.
func NewAnalyzer(src Source) *Analyzer {
	a := &Analyzer{
		src:         src,
		sensitivity: 1,
	}
	fft.InitPlan(&a.plan, a.windowed[:], a.spectrum[:])
	return a
}

// Tick runs one analysis frame unless the previous one ran less than
// TickInterval ago, in which case it does nothing. It reports whether a frame
// was analyzed.
func (a *Analyzer) Tick(now time.Time) bool {
	if !a.lastTick.IsZero() {
		if elapsed := now.Sub(a.lastTick); elapsed >= 0 && elapsed < TickInterval {
			return false
		}
	}
	a.lastTick = now

	a.capture()

	rms := math.Sqrt(floats.Dot(a.frame[:], a.frame[:])/SampleCount) / halfRange
	a.level = clamp01(ema(a.level, rms, levelWeight))

	a.computeSpectrum()
	a.computeBands()
	a.detectPitch()
	return true
}

func (a *Analyzer) capture() {
	for i := range a.frame {
		raw := a.src.Sample()
		switch {
		case raw < 0:
			raw = 0
		case raw > ADCMax:
			raw = ADCMax
		}
		a.frame[i] = float64(raw - ADCMidpoint)
	}
}

func (a *Analyzer) computeSpectrum() {
	a.windowed = a.frame
	window.Hamming()(a.windowed[:])
	a.plan.Execute()
	for i, c := range a.spectrum {
		a.magnitude[i] = cmplx.Abs(c)
	}
}

func (a *Analyzer) computeBands() {
	a.low = ema(a.low, a.bandEnergy(lowBins), bandWeight)
	a.mid = ema(a.mid, a.bandEnergy(midBins), bandWeight)
	a.high = ema(a.high, a.bandEnergy(highBins), bandWeight)
}

func (a *Analyzer) bandEnergy(bins [2]int) float64 {
	count := bins[1] - bins[0]
	if count <= 0 {
		return 0
	}
	sum := floats.Sum(a.magnitude[bins[0]:bins[1]])
	return clamp01(sum / (float64(count) * halfRange) * a.sensitivity)
}

// detectPitch estimates the fundamental by autocorrelating the time domain
// frame over lags between pitchMaxHz and pitchMinHz.
func (a *Analyzer) detectPitch() {
	minLag := SampleRate / pitchMaxHz
	maxLag := SampleRate / pitchMinHz

	var best float64
	var bestLag int
	for lag := minLag; lag <= maxLag && lag < SampleCount; lag++ {
		n := SampleCount - lag
		corr := floats.Dot(a.frame[:n], a.frame[lag:]) / float64(n)
		// Strictly greater keeps the shortest lag among equal periods.
		if corr > best {
			best = corr
			bestLag = lag
		}
	}

	var hz, conf float64
	if bestLag > 0 {
		hz = float64(SampleRate) / float64(bestLag)
		if a.level > 0 {
			conf = clamp01(best / (a.level * halfRange))
			if a.level < quietLevel {
				conf *= a.level / quietLevel
			}
		}
	}

	if conf > pitchAccept {
		a.pitchHz = ema(a.pitchHz, hz, pitchWeight)
		a.pitchConf = ema(a.pitchConf, conf, pitchWeight)
	} else {
		a.pitchHz *= pitchDecay
		a.pitchConf *= pitchDecay
	}
}

// Level returns the smoothed RMS volume in [0, 1].
func (a *Analyzer) Level() float64 { return a.level }

// Low returns the smoothed low band energy in [0, 1].
func (a *Analyzer) Low() float64 { return a.low }

// Mid returns the smoothed mid band energy in [0, 1].
func (a *Analyzer) Mid() float64 { return a.mid }

// High returns the smoothed high band energy in [0, 1].
func (a *Analyzer) High() float64 { return a.high }

// PitchHz returns the smoothed pitch. It is stale when PitchConf is low.
func (a *Analyzer) PitchHz() float64 { return a.pitchHz }

// PitchConf returns the smoothed pitch confidence in [0, 1].
func (a *Analyzer) PitchConf() float64 { return a.pitchConf }

// LevelByte returns Level scaled to [0, 255].
func (a *Analyzer) LevelByte() uint8 { return toByte(a.level) }

// LowByte returns Low scaled to [0, 255].
func (a *Analyzer) LowByte() uint8 { return toByte(a.low) }

// MidByte returns Mid scaled to [0, 255].
func (a *Analyzer) MidByte() uint8 { return toByte(a.mid) }

// HighByte returns High scaled to [0, 255].
func (a *Analyzer) HighByte() uint8 { return toByte(a.high) }

// Sensitivity returns the band energy multiplier.
func (a *Analyzer) Sensitivity() float64 { return a.sensitivity }

// SetSensitivity sets the band energy multiplier, clamped to
// [MinSensitivity, MaxSensitivity].
func (a *Analyzer) SetSensitivity(v float64) {
	a.sensitivity = ClampSensitivity(v)
}

// MapPitchToLen maps the current pitch onto [0, maxLen] on an octave scale
// between minHz and maxHz. scale stretches the result and is clamped to
// [0.1, 2]. It returns 0 when there is no pitch or the range is empty.
func (a *Analyzer) MapPitchToLen(minHz, maxHz, scale float64, maxLen int) int {
	if a.pitchHz <= 0 || minHz <= 0 || maxHz <= minHz || maxLen <= 0 {
		return 0
	}

	norm := math.Log2(a.pitchHz/minHz) / math.Log2(maxHz/minHz)
	norm = clamp01(norm)

	scale = math.Min(math.Max(scale, 0.1), 2.0)

	v := math.Min(norm*scale, 1)
	return int(v*float64(maxLen) + 0.5)
}

// ClampSensitivity clamps v to [MinSensitivity, MaxSensitivity]. NaN maps to
// MinSensitivity.
func ClampSensitivity(v float64) float64 {
	if math.IsNaN(v) || v < MinSensitivity {
		return MinSensitivity
	}
	if v > MaxSensitivity {
		return MaxSensitivity
	}
	return v
}

func ema(old, sample, weight float64) float64 {
	return old*(1-weight) + sample*weight
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toByte(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
