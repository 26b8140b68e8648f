package audioglow

import (
	"os"
	"strings"
	"testing"
	"time"

	"libdb.so/audioglow/internal/control"
	"libdb.so/audioglow/internal/led"
	"libdb.so/audioglow/internal/ledvis"
)

const testConfig = `
device = "/dev/ttyUSB0"
rate = 100

[leds]
count = 40
nodes = [39, 38, 37, 0, 1, 2]
brightness = 120

[flow]
color = "#ff8000"
tail = 5
interval = "15ms"
running = true

[audio]
enabled = true
kind = "beat"
beat_cooldown = "150ms"

[pitch]
armed = true
target = "C5"
cooldown = "2s"

[pitch_map]
enabled = true
min_hz = 200.0
max_hz = 800.0

[web]
listen = "localhost:8080"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Device != "/dev/ttyUSB0" || cfg.Rate != 100 {
		t.Errorf("unexpected device/rate: %q %d", cfg.Device, cfg.Rate)
	}
	if cfg.Baud != 115200 {
		t.Errorf("expected default baud, got %d", cfg.Baud)
	}

	if cfg.LEDs.Count != 40 || cfg.LEDs.Brightness != 120 || len(cfg.LEDs.Nodes) != 6 {
		t.Errorf("unexpected leds section: %+v", cfg.LEDs)
	}
	if cfg.LEDs.PowerLimitMA != 1500 {
		t.Errorf("expected default power limit, got %d", cfg.LEDs.PowerLimitMA)
	}

	if cfg.Flow.Color != led.RGB(0xFF, 0x80, 0x00) {
		t.Errorf("unexpected flow color %v", cfg.Flow.Color)
	}
	if time.Duration(cfg.Flow.Interval) != 15*time.Millisecond {
		t.Errorf("unexpected flow interval %v", time.Duration(cfg.Flow.Interval))
	}

	if cfg.Audio.Kind != ledvis.BeatPulse {
		t.Errorf("expected beat kind, got %v", cfg.Audio.Kind)
	}
	if cfg.Audio.Source != SerialAudioSource {
		t.Errorf("expected serial source with a device, got %q", cfg.Audio.Source)
	}
	if cfg.Audio.Sensitivity != 1.2 {
		t.Errorf("expected default sensitivity, got %v", cfg.Audio.Sensitivity)
	}

	if hz := cfg.PitchTargetHz(); hz < 523 || hz > 524 {
		t.Errorf("expected C5 at ~523.25 Hz, got %v", hz)
	}
	if cfg.Web.Listen != "localhost:8080" {
		t.Errorf("unexpected listen address %q", cfg.Web.Listen)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	want.Audio.Source = NoAudioSource

	if cfg.LEDs.Count != want.LEDs.Count || cfg.Rate != want.Rate {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Audio.Source != NoAudioSource {
		t.Errorf("expected no audio source without a device, got %q", cfg.Audio.Source)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no LEDs", func(c *Config) { c.LEDs.Count = 0 }},
		{"too many LEDs", func(c *Config) { c.LEDs.Count = led.MaxLEDs + 1 }},
		{"node outside strip", func(c *Config) { c.LEDs.Nodes = []int{0, c.LEDs.Count} }},
		{"brightness", func(c *Config) { c.LEDs.Brightness = 256 }},
		{"negative power", func(c *Config) { c.LEDs.PowerLimitMA = -1 }},
		{"rate", func(c *Config) { c.Rate = 0 }},
		{"tail", func(c *Config) { c.Flow.Tail = 300 }},
		{"unknown source", func(c *Config) { c.Audio.Source = "mic" }},
		{"wav without path", func(c *Config) { c.Audio.Source = WAVAudioSource }},
		{"serial without device", func(c *Config) { c.Audio.Source = SerialAudioSource }},
		{"bad note", func(c *Config) { c.Pitch.Target = "H4" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Audio.Source = NoAudioSource
			test.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Audio.Source = NoAudioSource
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	if _, err := ParseConfig(strings.NewReader("[leds\ncount = 1")); err == nil {
		t.Error("expected TOML syntax error")
	}
	if _, err := ParseConfig(strings.NewReader("[flow]\ncolor = \"blue\"")); err == nil {
		t.Error("expected color error")
	}
}

func TestConfigApply(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal(err)
	}

	ctrl := control.New(control.Options{LEDCount: cfg.LEDs.Count, Nodes: cfg.LEDs.Nodes})
	cfg.Apply(ctrl)

	if ctrl.Canvas().Brightness() != 120 {
		t.Errorf("brightness not applied: %d", ctrl.Canvas().Brightness())
	}
	if !ctrl.Flow().Running() || ctrl.Flow().Tail() != 5 {
		t.Errorf("flow not applied")
	}
	if !ctrl.Audio().Enabled() || ctrl.Audio().Kind() != ledvis.BeatPulse {
		t.Errorf("audio not applied")
	}
	if ctrl.Audio().BeatPulse().Cooldown() != 150*time.Millisecond {
		t.Errorf("beat cooldown not applied: %v", ctrl.Audio().BeatPulse().Cooldown())
	}
	if !ctrl.PitchTrigger().Armed || ctrl.PitchTrigger().Cooldown != 2*time.Second {
		t.Errorf("pitch trigger not applied: %+v", ctrl.PitchTrigger())
	}
	if pm := ctrl.PitchMap(); !pm.Enabled || pm.MinHz != 200 || pm.MaxHz != 800 {
		t.Errorf("pitch map not applied: %+v", pm)
	}
	if ctrl.Path().Size() != 6 {
		t.Errorf("expected 6 path nodes, got %d", ctrl.Path().Size())
	}
}

func TestExampleConfig(t *testing.T) {
	f, err := os.Open("audioglow.example.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	cfg, err := ParseConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Source != SerialAudioSource {
		t.Errorf("unexpected audio source %q", cfg.Audio.Source)
	}
	if time.Duration(cfg.Pitch.Cooldown) != 1200*time.Millisecond {
		t.Errorf("unexpected pitch cooldown %v", time.Duration(cfg.Pitch.Cooldown))
	}
}
