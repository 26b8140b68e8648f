package control

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"libdb.so/audioglow/internal/audio"
	"libdb.so/audioglow/internal/button"
	"libdb.so/audioglow/internal/led"
	"libdb.so/audioglow/internal/ledvis"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakePin struct{ level bool }

func (p *fakePin) Get() bool { return p.level }

type fakeIndicator struct{ l1, l2 bool }

func (i *fakeIndicator) Set(l1, l2 bool) { i.l1, i.l2 = l1, l2 }

func newTestController(t *testing.T, opts Options) *Controller {
	t.Helper()
	if opts.LEDCount == 0 {
		opts.LEDCount = 10
	}
	opts.Logger = quietLogger
	return New(opts)
}

func TestLongPressEntersStep(t *testing.T) {
	c := newTestController(t, Options{})
	c.StartFlow()

	if err := c.Tick(epoch); err != nil {
		t.Fatal(err)
	}

	c.LongPress(epoch)

	if c.Mode() != ModeStep {
		t.Fatalf("expected STEP mode, got %v", c.Mode())
	}
	if c.Flow().Running() {
		t.Fatal("expected flow to stop")
	}

	idx, color, ok := c.Point().Get()
	if !ok || idx != c.StepIndex() || color != StepColor {
		t.Fatalf("expected red point at %d, got %d %v set=%v", c.StepIndex(), idx, color, ok)
	}

	if err := c.Tick(epoch.Add(time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if got := c.Canvas().Pixel(c.Path().Node(c.StepIndex())); got != StepColor {
		t.Fatalf("expected step marker on the strip, got %v", got)
	}

	c.LongPress(epoch.Add(2 * time.Millisecond))
	if c.Mode() != ModeFlow || !c.Flow().Running() {
		t.Fatal("expected FLOW mode with the flow running")
	}
	if _, _, ok := c.Point().Get(); ok {
		t.Fatal("expected point cleared when going back to FLOW")
	}
}

func TestButtonDrivesModes(t *testing.T) {
	pin := &fakePin{level: true}
	c := newTestController(t, Options{
		Button:          pin,
		ButtonActiveLow: true,
	})
	c.StartFlow()

	now := epoch
	c.Tick(now)
	now = now.Add(time.Millisecond)

	hold := func(d time.Duration) {
		pin.level = false
		for end := now.Add(d); now.Before(end); now = now.Add(time.Millisecond) {
			c.Tick(now)
		}
		pin.level = true
		for end := now.Add(100 * time.Millisecond); now.Before(end); now = now.Add(time.Millisecond) {
			c.Tick(now)
		}
	}

	hold(button.DefaultLongPress + 100*time.Millisecond)
	if c.Mode() != ModeStep || c.Flow().Running() {
		t.Fatalf("long press: expected STEP with flow stopped, got %v running=%v", c.Mode(), c.Flow().Running())
	}

	hold(100 * time.Millisecond)
	if c.StepIndex() != 1 {
		t.Fatalf("short press: expected step index 1, got %d", c.StepIndex())
	}
	if idx, _, _ := c.Point().Get(); idx != 1 {
		t.Fatalf("short press: expected point at 1, got %d", idx)
	}

	hold(button.DefaultLongPress + 100*time.Millisecond)
	if c.Mode() != ModeFlow || !c.Flow().Running() {
		t.Fatal("second long press: expected FLOW with flow running")
	}

	hold(100 * time.Millisecond)
	if c.Flow().Running() {
		t.Fatal("short press in FLOW: expected flow to stop")
	}
}

func TestShortPressStepWraps(t *testing.T) {
	c := newTestController(t, Options{LEDCount: 3})
	c.LongPress(epoch)

	for i := 0; i < 3; i++ {
		c.ShortPress(epoch)
	}
	if c.StepIndex() != 0 {
		t.Fatalf("expected step index to wrap to 0, got %d", c.StepIndex())
	}
}

func TestLongPressCyclesAudioKind(t *testing.T) {
	c := newTestController(t, Options{})

	c.LongPress(epoch)
	if c.Audio().Kind() != ledvis.VUMeter {
		t.Fatal("audio kind changed while audio was disabled")
	}

	c.EnableAudio(true)
	c.SetAudioKind(int(ledvis.PitchColor))
	c.LongPress(epoch)
	if c.Audio().Kind() != ledvis.VUMeter {
		t.Fatalf("expected kind to wrap to VU meter, got %v", c.Audio().Kind())
	}
}

func TestAudioSkippedWhenUnused(t *testing.T) {
	var calls int
	c := newTestController(t, Options{
		Source: audio.SourceFunc(func() int {
			calls++
			return audio.ADCMidpoint
		}),
	})

	c.Tick(epoch)
	if calls != 0 {
		t.Fatalf("analyzer sampled %d times with nothing consuming audio", calls)
	}

	c.SetPitchMap(true, 1, 110, 880)
	c.Tick(epoch.Add(time.Second))
	if calls != audio.SampleCount {
		t.Fatalf("expected one frame of samples, got %d", calls)
	}
}

func TestDisableAudioCascades(t *testing.T) {
	c := newTestController(t, Options{})
	c.EnableAudio(true)
	c.ArmPitch(440, 0.3, 50, time.Second)
	c.SetPitchMap(true, 1, 110, 880)
	c.SetPoint(3, led.Green)

	c.EnableAudio(false)

	if c.Audio().Enabled() || c.PitchTrigger().Armed || c.PitchMap().Enabled {
		t.Fatal("expected audio, pitch trigger and pitch map off")
	}
	if _, _, ok := c.Point().Get(); ok {
		t.Fatal("expected point cleared")
	}
}

func TestDisarmPitchClearsPoint(t *testing.T) {
	c := newTestController(t, Options{})
	c.ArmPitch(440, 0.3, 50, time.Second)
	c.SetPoint(1, PitchColor)

	c.DisarmPitch()
	if c.PitchTrigger().Armed {
		t.Fatal("expected trigger disarmed")
	}
	if _, _, ok := c.Point().Get(); ok {
		t.Fatal("expected point cleared")
	}
}

func TestPitchTriggerFiresOnTone(t *testing.T) {
	c := newTestController(t, Options{Source: audio.NewSine(500, 1000)})
	c.ArmPitch(500, 0.3, 50, time.Minute)

	now := epoch
	for i := 0; i < 40; i++ {
		c.Tick(now)
		now = now.Add(audio.TickInterval)
	}

	idx, color, ok := c.Point().Get()
	if !ok || color != PitchColor || idx != c.StepIndex() {
		t.Fatalf("expected green point at %d, got %d %v set=%v", c.StepIndex(), idx, color, ok)
	}
}

func TestPitchMapDrivesLength(t *testing.T) {
	c := newTestController(t, Options{Source: audio.NewSine(500, 1000)})
	c.EnableAudio(true)
	c.SetPitchMap(true, 1, 110, 880)

	now := epoch
	for i := 0; i < 40; i++ {
		c.Tick(now)
		now = now.Add(audio.TickInterval)
	}

	n, ok := c.Audio().ExternalLength()
	if !ok {
		t.Fatal("expected external length in use")
	}
	want := c.Analyzer().MapPitchToLen(110, 880, 1, c.Path().Size())
	if n != want || n == 0 {
		t.Fatalf("expected external length %d, got %d", want, n)
	}

	c.SetPitchMap(false, 1, 110, 880)
	if _, ok := c.Audio().ExternalLength(); ok {
		t.Fatal("expected external length released")
	}
}

func TestPitchTriggerCheck(t *testing.T) {
	p := DefaultPitchTrigger()
	p.Armed = true

	tests := []struct {
		name string
		at   time.Duration
		hz   float64
		conf float64
		want bool
	}{
		{"low confidence", 0, 440, 0.1, false},
		{"too far", 0, 466.16, 0.9, false}, // one semitone
		{"no pitch", 0, 0, 0.9, false},
		{"within tolerance", 0, 445, 0.9, true},
		{"cooldown", time.Second, 440, 0.9, false},
		{"after cooldown", 1300 * time.Millisecond, 440, 0.9, true},
	}

	for _, test := range tests {
		if got := p.Check(epoch.Add(test.at), test.hz, test.conf); got != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}
}

func TestSettersClamp(t *testing.T) {
	c := newTestController(t, Options{})

	c.SetBrightness(300)
	if c.Canvas().Brightness() != 255 {
		t.Errorf("brightness: expected 255, got %d", c.Canvas().Brightness())
	}
	c.SetBrightness(-4)
	if c.Canvas().Brightness() != 0 {
		t.Errorf("brightness: expected 0, got %d", c.Canvas().Brightness())
	}

	c.SetPowerLimit(-1)
	c.SetLEDFullMA(0)
	if c.Canvas().PowerLimitMA() != 0 || c.Canvas().LEDFullMA() != led.DefaultLEDFullMA {
		t.Errorf("power: got limit %d, per LED %d", c.Canvas().PowerLimitMA(), c.Canvas().LEDFullMA())
	}

	c.ArmPitch(5, 2, 5000, 2*time.Hour)
	p := c.PitchTrigger()
	if p.TargetHz != MinPitchHz || p.MinConf != 1 || p.TolCents != MaxPitchTolCents || p.Cooldown != MaxPitchCooldown {
		t.Errorf("pitch trigger not clamped: %+v", p)
	}

	c.SetPitchMap(true, 5, 1, 1e6)
	m := c.PitchMap()
	if m.Scale != MaxPitchMapScale || m.MinHz != MinPitchHz || m.MaxHz != MaxPitchHz {
		t.Errorf("pitch map not clamped: %+v", m)
	}

	c.SetFlow(led.Red, 500, 0)
	if c.Flow().Tail() != 255 || c.Flow().Interval() != time.Millisecond {
		t.Errorf("flow not clamped: tail %d interval %v", c.Flow().Tail(), c.Flow().Interval())
	}

	c.SetAudioKind(42)
	if c.Audio().Kind() != ledvis.PitchColor {
		t.Errorf("audio kind not clamped: %v", c.Audio().Kind())
	}

	c.SetSensitivity(-1)
	c.SetAnalyzerSensitivity(99)
	if c.Audio().Sensitivity() != ledvis.MinSensitivity || c.Analyzer().Sensitivity() != audio.MaxSensitivity {
		t.Errorf("sensitivities not clamped: %v %v", c.Audio().Sensitivity(), c.Analyzer().Sensitivity())
	}
}

func TestStatusJSON(t *testing.T) {
	c := newTestController(t, Options{})
	c.LongPress(epoch)
	c.Tick(epoch)

	b, err := json.Marshal(c.Status())
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{`"mode":"STEP"`, `"kind":"vu"`, `"armed":false`, `"color":"#ff0000"`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("status %s does not contain %s", b, want)
		}
	}
}

func TestStatusPoint(t *testing.T) {
	c := newTestController(t, Options{})
	c.SetPoint(7, led.Green)

	status := c.Status()
	if status.Point.Index != 7 || !status.Point.Set || status.Point.Color != led.Green {
		t.Errorf("unexpected point status %+v", status.Point)
	}
	if status.Step != 0 {
		t.Errorf("expected step 0, got %d", status.Step)
	}

	c.LongPress(epoch)
	c.ShortPress(epoch)
	if status := c.Status(); status.Step != 1 || status.Point.Index != 1 {
		t.Errorf("expected step and point at 1, got step %d point %d", status.Step, status.Point.Index)
	}
}

func TestIndicator(t *testing.T) {
	pins := &fakeIndicator{}
	ind := NewIndicator(pins)

	ind.Tick(epoch, ModeFlow, false)
	if !pins.l1 || pins.l2 {
		t.Fatalf("stopped flow: expected L1 solid, got %v %v", pins.l1, pins.l2)
	}

	ind.Tick(epoch, ModeFlow, true)
	first := pins.l1
	ind.Tick(epoch.Add(100*time.Millisecond), ModeFlow, true)
	if pins.l1 != first {
		t.Fatal("L1 toggled before the blink period")
	}
	ind.Tick(epoch.Add(IndicatorBlink), ModeFlow, true)
	if pins.l1 == first {
		t.Fatal("L1 did not toggle after the blink period")
	}

	ind.Tick(epoch, ModeStep, false)
	if pins.l1 || !pins.l2 {
		t.Fatalf("STEP: expected only L2, got %v %v", pins.l1, pins.l2)
	}

	ind.Flash(epoch, StepFlash)
	ind.Tick(epoch.Add(StepFlash/2), ModeStep, false)
	if pins.l2 {
		t.Fatal("expected L2 inverted during a flash")
	}
	ind.Tick(epoch.Add(StepFlash), ModeStep, false)
	if !pins.l2 {
		t.Fatal("expected L2 back on after the flash")
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"440", 440, false},
		{" 261.5 ", 261.5, false},
		{"A4", 440, false},
		{"A5", 880, false},
		{"C4", 261.6256, false},
		{"C#4", 277.1826, false},
		{"Db4", 277.1826, false},
		{"Bb3", 233.0819, false},
		{"H4", 0, true},
		{"A", 0, true},
		{"A10", 0, true},
		{"-5", 0, true},
		{"", 0, true},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, err := ParseNote(test.in)
			if (err != nil) != test.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if !test.wantErr && math.Abs(got-test.want) > 1e-3 {
				t.Fatalf("expected %.4f, got %.4f", test.want, got)
			}
		})
	}
}

func TestModeText(t *testing.T) {
	var m Mode
	if err := m.UnmarshalText([]byte("step")); err != nil || m != ModeStep {
		t.Fatalf("expected STEP, got %v (%v)", m, err)
	}
	if err := m.UnmarshalText([]byte("dance")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
