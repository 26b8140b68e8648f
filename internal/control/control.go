// Package control wires the analyzer, the effects and the button into one
// controller driven by a single Tick function.
package control

import (
	"log/slog"
	"time"

	"libdb.so/audioglow/internal/audio"
	"libdb.so/audioglow/internal/button"
	"libdb.so/audioglow/internal/effect"
	"libdb.so/audioglow/internal/led"
	"libdb.so/audioglow/internal/ledvis"
)

const (
	// StepFlash is how long the indicator flashes after a step.
	StepFlash = 120 * time.Millisecond
	// KindFlash is how long the indicator flashes after the audio visualizer
	// changed.
	KindFlash = 160 * time.Millisecond

	audioLogInterval = 500 * time.Millisecond
)

// Marker colors.
var (
	StepColor  = led.Red
	PitchColor = led.Green
)

// Options configures a Controller.
type Options struct {
	// LEDCount is the number of LEDs on the strip.
	LEDCount int
	// Nodes optionally maps path positions to LEDs. A linear path over all
	// LEDs is used if empty.
	Nodes []int
	// Strip receives the rendered frames. It may be nil.
	Strip led.Strip
	// Source feeds the analyzer. Silence is used if nil.
	Source audio.Source

	// Button is the push button input. It may be nil.
	Button          button.Pin
	ButtonActiveLow bool
	Debounce        time.Duration
	LongPress       time.Duration

	// Indicator drives the onboard mode LEDs. It may be nil.
	Indicator IndicatorPins

	Logger *slog.Logger
}

// Controller owns all rendering state. None of its methods are safe for
// concurrent use; callers on other goroutines must go through the owner of
// the Tick loop.
type Controller struct {
	analyzer *audio.Analyzer
	canvas   *led.Canvas
	path     *led.Path
	flow     *effect.Flow
	point    *effect.Point
	audio    *ledvis.AudioEffect
	manager  *effect.Manager

	button    *button.Debouncer
	indicator *Indicator
	logger    *slog.Logger

	mode      Mode
	stepIndex int
	pitch     PitchTrigger
	pitchMap  PitchMap

	started bool
	lastLog time.Time
}

// New creates a controller in FLOW mode with the flow stopped and audio
// disabled.
func New(opts Options) *Controller {
	if opts.Source == nil {
		opts.Source = audio.Silence
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = button.DefaultDebounce
	}
	if opts.LongPress <= 0 {
		opts.LongPress = button.DefaultLongPress
	}

	c := &Controller{
		analyzer:  audio.NewAnalyzer(opts.Source),
		canvas:    led.NewCanvas(opts.LEDCount, opts.Strip),
		indicator: NewIndicator(opts.Indicator),
		logger:    opts.Logger,
		mode:      ModeFlow,
		pitch:     DefaultPitchTrigger(),
		pitchMap:  DefaultPitchMap(),
	}

	if len(opts.Nodes) > 0 {
		c.path = led.NewPath(c.canvas)
		c.path.SetNodes(opts.Nodes)
	} else {
		c.path = led.NewLinearPath(c.canvas)
	}

	c.flow = effect.NewFlow(c.path)
	c.point = effect.NewPoint(c.path)
	c.audio = ledvis.NewAudioEffect(c.path, c.analyzer)

	c.manager = effect.NewManager()
	c.manager.AddCanvas(c.canvas)
	c.manager.AddEffect(c.flow)
	c.manager.AddEffect(c.point)
	c.manager.AddEffect(c.audio)

	if opts.Button != nil {
		c.button = button.New(opts.Button, opts.ButtonActiveLow, opts.Debounce, opts.LongPress)
	}

	return c
}

// Tick runs one iteration of the main loop: poll the button, analyze audio
// if anything needs it, react to button events, render and flush a frame and
// update the indicator. The returned error comes from the strip and does not
// affect the next tick.
func (c *Controller) Tick(now time.Time) error {
	if !c.started {
		c.started = true
		if c.button != nil {
			c.button.Begin(now)
		}
	}

	if c.button != nil {
		c.button.Poll(now)
	}

	if c.AudioNeeded() {
		c.analyzer.Tick(now)
		c.logAudio(now)
		c.applyPitchMap()
		c.runPitchTrigger(now)
	}

	c.handleButton(now)

	err := c.manager.Tick(now)

	c.indicator.Tick(now, c.mode, c.flow.Running())
	return err
}

// AudioNeeded returns whether any feature consumes the analyzer output.
func (c *Controller) AudioNeeded() bool {
	return c.audio.Enabled() || c.pitch.Armed || c.pitchMap.Enabled
}

func (c *Controller) logAudio(now time.Time) {
	if !c.lastLog.IsZero() && now.Sub(c.lastLog) < audioLogInterval {
		return
	}
	c.lastLog = now

	c.logger.Debug(
		"audio",
		"level", c.analyzer.Level(),
		"low", c.analyzer.Low(),
		"mid", c.analyzer.Mid(),
		"high", c.analyzer.High(),
		"pitch_hz", c.analyzer.PitchHz(),
		"pitch_conf", c.analyzer.PitchConf(),
		"enabled", c.audio.Enabled(),
		"kind", c.audio.Kind())
}

func (c *Controller) applyPitchMap() {
	if !c.audio.Enabled() || !c.pitchMap.Enabled {
		c.audio.ClearExternalLength()
		return
	}

	n := c.analyzer.MapPitchToLen(c.pitchMap.MinHz, c.pitchMap.MaxHz, c.pitchMap.Scale, c.path.Size())
	c.audio.SetExternalLength(n)
}

func (c *Controller) runPitchTrigger(now time.Time) {
	if c.pitch.Check(now, c.analyzer.PitchHz(), c.analyzer.PitchConf()) {
		c.point.Set(c.stepIndex, PitchColor)
		c.logger.Debug(
			"pitch trigger hit",
			"pitch_hz", c.analyzer.PitchHz(),
			"target_hz", c.pitch.TargetHz)
	}
}

func (c *Controller) handleButton(now time.Time) {
	if c.button == nil {
		return
	}

	if c.button.ConsumeLong() {
		c.LongPress(now)
	}
	if c.button.ConsumeShort() {
		c.ShortPress(now)
	}
}

// LongPress toggles between FLOW and STEP mode. While audio is enabled it
// also advances the audio visualizer.
func (c *Controller) LongPress(now time.Time) {
	switch c.mode {
	case ModeFlow:
		c.mode = ModeStep
		c.flow.Stop()
		c.point.Set(c.stepIndex, StepColor)
	case ModeStep:
		c.mode = ModeFlow
		c.flow.Start()
		c.point.Clear()
	}

	c.logger.Info(
		"mode changed",
		"mode", c.mode)

	if c.audio.Enabled() {
		c.audio.SetKind(c.audio.Kind().Next())
		c.indicator.Flash(now, KindFlash)

		c.logger.Info(
			"audio visualizer changed",
			"kind", c.audio.Kind())
	}
}

// ShortPress toggles the flow in FLOW mode and advances the marker in STEP
// mode.
func (c *Controller) ShortPress(now time.Time) {
	switch c.mode {
	case ModeFlow:
		if c.flow.Running() {
			c.flow.Stop()
		} else {
			c.flow.Start()
		}
	case ModeStep:
		if size := c.path.Size(); size > 0 {
			c.stepIndex = (c.stepIndex + 1) % size
		}
		c.point.Set(c.stepIndex, StepColor)
		c.indicator.Flash(now, StepFlash)
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// StepIndex returns the path position of the STEP marker.
func (c *Controller) StepIndex() int { return c.stepIndex }

// Analyzer returns the audio analyzer.
func (c *Controller) Analyzer() *audio.Analyzer { return c.analyzer }

// Canvas returns the LED canvas.
func (c *Controller) Canvas() *led.Canvas { return c.canvas }

// Path returns the path all effects draw along.
func (c *Controller) Path() *led.Path { return c.path }

// Flow returns the flow effect.
func (c *Controller) Flow() *effect.Flow { return c.flow }

// Point returns the marker effect.
func (c *Controller) Point() *effect.Point { return c.point }

// Audio returns the audio effect.
func (c *Controller) Audio() *ledvis.AudioEffect { return c.audio }

// Indicator returns the onboard indicator.
func (c *Controller) Indicator() *Indicator { return c.indicator }

// PitchTrigger returns the pitch trigger settings.
func (c *Controller) PitchTrigger() PitchTrigger { return c.pitch }

// PitchMap returns the pitch map settings.
func (c *Controller) PitchMap() PitchMap { return c.pitchMap }
