package audioglow

import (
	"encoding"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/audioglow/internal/button"
	"libdb.so/audioglow/internal/control"
	"libdb.so/audioglow/internal/effect"
	"libdb.so/audioglow/internal/led"
	"libdb.so/audioglow/internal/ledvis"
)

// Config is the configuration for the audioglow daemon.
type Config struct {
	// Device is the path to the device file of the LED controller.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0. If empty, frames are
	// rendered but not sent anywhere.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// Rate is the number of controller ticks per second.
	Rate int `toml:"rate"`

	LEDs     LEDsConfig     `toml:"leds"`
	Flow     FlowConfig     `toml:"flow"`
	Button   ButtonConfig   `toml:"button"`
	Audio    AudioConfig    `toml:"audio"`
	Pitch    PitchConfig    `toml:"pitch"`
	PitchMap PitchMapConfig `toml:"pitch_map"`
	Web      WebConfig      `toml:"web"`
}

// LEDsConfig describes the strip and its power budget.
type LEDsConfig struct {
	// Count is the number of LEDs on the strip.
	Count int `toml:"count"`
	// Nodes optionally maps path positions to LED indices.
	Nodes []int `toml:"nodes"`
	// Brightness is the global brightness, 0 to 255.
	Brightness int `toml:"brightness"`
	// PowerLimitMA is the power budget in mA. Zero disables limiting.
	PowerLimitMA int `toml:"power_limit_ma"`
	// LEDFullMA is the draw of one LED at full white in mA.
	LEDFullMA int `toml:"led_full_ma"`
}

// FlowConfig is the configuration for the flow animation.
type FlowConfig struct {
	Color    led.RGBColor `toml:"color"`
	Tail     int          `toml:"tail"`
	Interval TOMLDuration `toml:"interval"`
	Running  bool         `toml:"running"`
}

// ButtonConfig is the configuration for the push button. The button level
// is reported by the device over serial.
type ButtonConfig struct {
	ActiveLow bool         `toml:"active_low"`
	Debounce  TOMLDuration `toml:"debounce"`
	LongPress TOMLDuration `toml:"long_press"`
}

// AudioSource is the kind of audio source to feed the analyzer with.
type AudioSource string

const (
	// NoAudioSource feeds the analyzer silence.
	NoAudioSource AudioSource = "none"
	// SineAudioSource feeds the analyzer a sine wave. Useful for testing.
	SineAudioSource AudioSource = "sine"
	// WAVAudioSource loops a WAV file.
	WAVAudioSource AudioSource = "wav"
	// SerialAudioSource uses the microphone samples sent by the device.
	SerialAudioSource AudioSource = "serial"
	// PortAudioSource captures the default input device. It requires the
	// portaudio build tag.
	PortAudioSource AudioSource = "portaudio"
)

// AudioConfig is the configuration for the analyzer and the audio effect.
type AudioConfig struct {
	Source AudioSource `toml:"source"`
	// WAV is the path of the file looped by the wav source.
	WAV string `toml:"wav"`
	// SineHz is the frequency of the sine source.
	SineHz float64 `toml:"sine_hz"`

	Enabled             bool        `toml:"enabled"`
	Kind                ledvis.Kind `toml:"kind"`
	Sensitivity         float64     `toml:"sensitivity"`
	AnalyzerSensitivity float64     `toml:"analyzer_sensitivity"`

	BeatThreshold float64      `toml:"beat_threshold"`
	BeatCooldown  TOMLDuration `toml:"beat_cooldown"`
}

// PitchConfig is the configuration for the pitch trigger.
type PitchConfig struct {
	Armed bool `toml:"armed"`
	// Target is either a frequency in Hz or a note name such as "A4".
	Target   string       `toml:"target"`
	MinConf  float64      `toml:"min_conf"`
	TolCents float64      `toml:"tol_cents"`
	Cooldown TOMLDuration `toml:"cooldown"`
}

// PitchMapConfig is the configuration for the pitch to length map.
type PitchMapConfig struct {
	Enabled bool    `toml:"enabled"`
	Scale   float64 `toml:"scale"`
	MinHz   float64 `toml:"min_hz"`
	MaxHz   float64 `toml:"max_hz"`
}

// WebConfig is the configuration for the HTTP control surface.
type WebConfig struct {
	// Listen is the address to listen on. The surface is disabled if empty.
	Listen string `toml:"listen"`
}

// DefaultConfig returns the configuration used for every field that the
// TOML file leaves out.
func DefaultConfig() Config {
	trigger := control.DefaultPitchTrigger()
	pitchMap := control.DefaultPitchMap()

	return Config{
		Baud: 115200,
		Rate: 60,
		LEDs: LEDsConfig{
			Count:        160,
			Brightness:   60,
			PowerLimitMA: 1500,
			LEDFullMA:    led.DefaultLEDFullMA,
		},
		Flow: FlowConfig{
			Color:    led.Green,
			Tail:     30,
			Interval: TOMLDuration(30 * time.Millisecond),
			Running:  true,
		},
		Button: ButtonConfig{
			ActiveLow: true,
			Debounce:  TOMLDuration(button.DefaultDebounce),
			LongPress: TOMLDuration(button.DefaultLongPress),
		},
		Audio: AudioConfig{
			SineHz:              440,
			Kind:                ledvis.VUMeter,
			Sensitivity:         1.2,
			AnalyzerSensitivity: 1,
			BeatThreshold:       ledvis.DefaultBeatThreshold,
			BeatCooldown:        TOMLDuration(ledvis.DefaultBeatCooldown),
		},
		Pitch: PitchConfig{
			Target:   "A4",
			MinConf:  trigger.MinConf,
			TolCents: trigger.TolCents,
			Cooldown: TOMLDuration(trigger.Cooldown),
		},
		PitchMap: PitchMapConfig{
			Scale: pitchMap.Scale,
			MinHz: pitchMap.MinHz,
			MaxHz: pitchMap.MaxHz,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LEDs.Count <= 0 {
		return errors.New("no LEDs configured")
	}
	if c.LEDs.Count > led.MaxLEDs {
		return errors.Errorf("too many LEDs: %d > %d", c.LEDs.Count, led.MaxLEDs)
	}

	for i, node := range c.LEDs.Nodes {
		if node < 0 || node >= c.LEDs.Count {
			return errors.Errorf("node %d maps to LED %d outside the strip", i, node)
		}
	}

	if c.LEDs.Brightness < 0 || c.LEDs.Brightness > 255 {
		return errors.Errorf("brightness %d out of range [0, 255]", c.LEDs.Brightness)
	}
	if c.LEDs.PowerLimitMA < 0 {
		return errors.Errorf("negative power limit %d", c.LEDs.PowerLimitMA)
	}

	if c.Rate <= 0 {
		return errors.Errorf("invalid rate %d", c.Rate)
	}
	if c.Device != "" && c.Baud <= 0 {
		return errors.Errorf("invalid baud rate %d", c.Baud)
	}

	if c.Flow.Tail < 0 || c.Flow.Tail > 255 {
		return errors.Errorf("flow tail %d out of range [0, 255]", c.Flow.Tail)
	}

	switch c.Audio.Source {
	case NoAudioSource, SineAudioSource, PortAudioSource:
	case WAVAudioSource:
		if c.Audio.WAV == "" {
			return errors.New("wav audio source requires audio.wav")
		}
	case SerialAudioSource:
		if c.Device == "" {
			return errors.New("serial audio source requires a device")
		}
	default:
		return errors.Errorf("unknown audio source %q", c.Audio.Source)
	}

	if _, err := control.ParseNote(c.Pitch.Target); err != nil {
		return errors.Wrap(err, "invalid pitch target")
	}

	return nil
}

// PitchTargetHz returns the pitch trigger target in Hz. It assumes the config
// is valid.
func (c *Config) PitchTargetHz() float64 {
	hz, _ := control.ParseNote(c.Pitch.Target)
	return hz
}

// Apply configures the controller with everything in the config that is not
// hardware related.
func (c *Config) Apply(ctrl *control.Controller) {
	ctrl.SetBrightness(c.LEDs.Brightness)
	ctrl.SetPowerLimit(c.LEDs.PowerLimitMA)
	ctrl.SetLEDFullMA(c.LEDs.LEDFullMA)

	interval := effect.ClampFlowInterval(time.Duration(c.Flow.Interval))
	ctrl.SetFlow(c.Flow.Color, c.Flow.Tail, interval)
	if c.Flow.Running {
		ctrl.StartFlow()
	}

	ctrl.SetAudioKind(int(c.Audio.Kind))
	ctrl.SetSensitivity(c.Audio.Sensitivity)
	ctrl.SetAnalyzerSensitivity(c.Audio.AnalyzerSensitivity)
	ctrl.SetBeatThreshold(c.Audio.BeatThreshold)
	ctrl.SetBeatCooldown(time.Duration(c.Audio.BeatCooldown))
	ctrl.EnableAudio(c.Audio.Enabled)

	if c.Pitch.Armed {
		ctrl.ArmPitch(c.PitchTargetHz(), c.Pitch.MinConf, c.Pitch.TolCents, time.Duration(c.Pitch.Cooldown))
	}
	ctrl.SetPitchMap(c.PitchMap.Enabled, c.PitchMap.Scale, c.PitchMap.MinHz, c.PitchMap.MaxHz)
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Keys missing from the
// document keep their DefaultConfig values. The returned config is validated.
func ParseConfig(r io.Reader) (*Config, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse TOML")
	}

	config := DefaultConfig()
	if err := tree.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if config.Audio.Source == "" {
		config.Audio.Source = NoAudioSource
		if config.Device != "" {
			config.Audio.Source = SerialAudioSource
		}
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &config, nil
}
