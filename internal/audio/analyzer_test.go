package audio

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// runFrames ticks the analyzer n times, one TickInterval apart, starting at
// start. It returns the time of the last tick.
func runFrames(t *testing.T, a *Analyzer, start time.Time, n int) time.Time {
	t.Helper()

	now := start
	for i := 0; i < n; i++ {
		if !a.Tick(now) {
			t.Fatalf("tick %d at %v was rate limited", i, now)
		}
		now = now.Add(TickInterval)
	}
	return now.Add(-TickInterval)
}

func TestAnalyzerRateLimit(t *testing.T) {
	var calls int
	a := NewAnalyzer(SourceFunc(func() int {
		calls++
		return ADCMidpoint
	}))

	if !a.Tick(epoch) {
		t.Fatal("first tick was skipped")
	}
	if calls != SampleCount {
		t.Fatalf("expected %d samples per frame, got %d", SampleCount, calls)
	}

	if a.Tick(epoch.Add(time.Millisecond)) {
		t.Fatal("tick 1ms after the last one was not rate limited")
	}
	if calls != SampleCount {
		t.Fatalf("rate limited tick read %d samples", calls-SampleCount)
	}

	if !a.Tick(epoch.Add(TickInterval)) {
		t.Fatal("tick exactly one interval later was skipped")
	}
	if !a.Tick(epoch) {
		t.Fatal("tick with a clock going backwards was skipped")
	}
}

func TestAnalyzerLocksOntoTone(t *testing.T) {
	a := NewAnalyzer(NewSine(500, 1000))
	runFrames(t, a, epoch, 40)

	if hz := a.PitchHz(); math.Abs(hz-500) > 1 {
		t.Errorf("expected pitch near 500 Hz, got %.2f", hz)
	}
	if conf := a.PitchConf(); conf < 0.9 {
		t.Errorf("expected high confidence, got %.3f", conf)
	}
	if lvl := a.Level(); lvl < 0.3 || lvl > 0.4 {
		// 1000 / sqrt(2) / 2048
		t.Errorf("expected level near 0.345, got %.3f", lvl)
	}
}

func TestAnalyzerPitchDecaysOnSilence(t *testing.T) {
	var silent bool
	tone := NewSine(500, 1000)
	a := NewAnalyzer(SourceFunc(func() int {
		if silent {
			return ADCMidpoint
		}
		return tone.Sample()
	}))

	last := runFrames(t, a, epoch, 40)
	hz0, conf0 := a.PitchHz(), a.PitchConf()

	const k = 10
	silent = true
	runFrames(t, a, last.Add(TickInterval), k)

	decay := math.Pow(pitchDecay, k)
	if hz := a.PitchHz(); math.Abs(hz-hz0*decay) > 1e-6 {
		t.Errorf("expected pitch %.6f after %d silent frames, got %.6f", hz0*decay, k, hz)
	}
	if conf := a.PitchConf(); math.Abs(conf-conf0*decay) > 1e-6 {
		t.Errorf("expected confidence %.6f after %d silent frames, got %.6f", conf0*decay, k, conf)
	}
}

func TestAnalyzerFeaturesStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := NewAnalyzer(SourceFunc(func() int {
		// Deliberately exceed the ADC range on both ends.
		return rng.Intn(ADCMax+1000) - 500
	}))
	a.SetSensitivity(MaxSensitivity)

	now := epoch
	for i := 0; i < 200; i++ {
		a.Tick(now)
		now = now.Add(TickInterval)

		for name, v := range map[string]float64{
			"level": a.Level(),
			"low":   a.Low(),
			"mid":   a.Mid(),
			"high":  a.High(),
			"conf":  a.PitchConf(),
		} {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("frame %d: %s out of range: %v", i, name, v)
			}
		}
		if a.PitchHz() < 0 {
			t.Fatalf("frame %d: negative pitch %v", i, a.PitchHz())
		}
	}
}

func TestAnalyzerBandsFollowTone(t *testing.T) {
	// 250 Hz is bin 4 at 62.5 Hz per bin.
	a := NewAnalyzer(NewSine(250, 1000))
	runFrames(t, a, epoch, 40)

	if a.Low() < 0.5 {
		t.Errorf("expected strong low band, got %.3f", a.Low())
	}
	if a.High() > 0.1 {
		t.Errorf("expected quiet high band, got %.3f", a.High())
	}
	if a.LowByte() <= a.HighByte() {
		t.Errorf("expected low byte %d above high byte %d", a.LowByte(), a.HighByte())
	}
}

func TestAnalyzerSilenceIsZero(t *testing.T) {
	a := NewAnalyzer(Silence)
	runFrames(t, a, epoch, 10)

	if a.Level() != 0 || a.Low() != 0 || a.Mid() != 0 || a.High() != 0 {
		t.Errorf("expected zero features on silence, got level=%v low=%v mid=%v high=%v",
			a.Level(), a.Low(), a.Mid(), a.High())
	}
	if a.PitchHz() != 0 || a.PitchConf() != 0 {
		t.Errorf("expected no pitch on silence, got %v Hz at %v", a.PitchHz(), a.PitchConf())
	}
}

func TestMapPitchToLen(t *testing.T) {
	tests := []struct {
		name   string
		pitch  float64
		minHz  float64
		maxHz  float64
		scale  float64
		maxLen int
		want   int
	}{
		{"geometric midpoint", 311.13, 110, 880, 1, 100, 50},
		{"a4", 440, 110, 880, 1, 100, 67},
		{"below range", 50, 110, 880, 1, 100, 0},
		{"above range", 2000, 110, 880, 1, 100, 100},
		{"scale clamped high", 440, 110, 880, 5, 100, 100},
		{"scale clamped low", 440, 110, 880, 0, 100, 7},
		{"no pitch", 0, 110, 880, 1, 100, 0},
		{"inverted range", 440, 880, 110, 1, 100, 0},
		{"zero min", 440, 0, 880, 1, 100, 0},
		{"no length", 440, 110, 880, 1, 0, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := NewAnalyzer(Silence)
			a.pitchHz = test.pitch

			got := a.MapPitchToLen(test.minHz, test.maxHz, test.scale, test.maxLen)
			if got != test.want {
				t.Errorf("expected %d, got %d", test.want, got)
			}
		})
	}
}

func TestSetSensitivityClamped(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, MinSensitivity},
		{-2, MinSensitivity},
		{math.NaN(), MinSensitivity},
		{2.5, 2.5},
		{50, MaxSensitivity},
	}

	a := NewAnalyzer(Silence)
	for _, test := range tests {
		a.SetSensitivity(test.in)
		if a.Sensitivity() != test.want {
			t.Errorf("SetSensitivity(%v): expected %v, got %v", test.in, test.want, a.Sensitivity())
		}
	}
}

func TestSineIsContinuous(t *testing.T) {
	const amplitude = 1000
	s := NewSine(440.5, amplitude)

	// Largest step of a 440.5 Hz sine between two samples, plus rounding.
	maxStep := amplitude*2*math.Pi*440.5/SampleRate + 2

	prev := s.Sample()
	for i := 1; i < 3*SampleRate; i++ {
		v := s.Sample()
		if d := math.Abs(float64(v - prev)); d > maxStep {
			t.Fatalf("sample %d jumped by %v (max %v)", i, d, maxStep)
		}
		prev = v
	}
}

func TestStreamUnderrunReadsMidpoint(t *testing.T) {
	s := NewStream(SampleCount)
	s.Push(1, 2, 3)

	for _, want := range []int{1, 2, 3, ADCMidpoint, ADCMidpoint} {
		if got := s.Sample(); got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestStreamOverwritesOldest(t *testing.T) {
	s := NewStream(SampleCount)
	for i := 0; i < SampleCount+5; i++ {
		s.Push(i)
	}

	if s.Len() != SampleCount {
		t.Fatalf("expected %d buffered samples, got %d", SampleCount, s.Len())
	}
	if got := s.Sample(); got != 5 {
		t.Fatalf("expected oldest surviving sample 5, got %d", got)
	}
}

func TestWAVSourceLoopsAndResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.wav")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	const frames = 100
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: 2 * SampleRate},
		Data:   make([]int, frames),
	}
	for i := range buf.Data {
		buf.Data[i] = i << 4
	}

	enc := wav.NewEncoder(f, 2*SampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	src, err := NewWAVSource(f)
	if err != nil {
		t.Fatal(err)
	}

	// Twice the analysis rate, so every other frame is read.
	for i := 0; i < frames/2; i++ {
		if got, want := src.Sample(), ADCMidpoint+2*i; got != want {
			t.Fatalf("sample %d: expected %d, got %d", i, want, got)
		}
	}
	if got := src.Sample(); got != ADCMidpoint {
		t.Fatalf("expected the source to loop back to %d, got %d", ADCMidpoint, got)
	}
}

func TestNewWAVSourceRejectsGarbage(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "garbage")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	f.WriteString("definitely not a RIFF file")
	f.Seek(0, 0)

	if _, err := NewWAVSource(f); err == nil {
		t.Fatal("expected an error decoding garbage")
	}
}
