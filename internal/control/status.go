package control

import (
	"libdb.so/audioglow/internal/led"
	"libdb.so/audioglow/internal/ledvis"
)

// Status is a snapshot of the controller state. It holds no references into
// the controller and is safe to hand to other goroutines.
type Status struct {
	Mode       Mode        `json:"mode"`
	Step       int         `json:"step"`
	Brightness uint8       `json:"brightness"`
	Power      PowerStatus `json:"power"`
	Flow       FlowStatus  `json:"flow"`
	Audio      AudioStatus `json:"audio"`
	Pitch      PitchStatus `json:"pitch"`
	PitchMap   PitchMap    `json:"pitchmap"`
	Point      PointStatus `json:"point"`
	Indicator  [2]bool     `json:"indicator"`
}

// PowerStatus describes the power model.
type PowerStatus struct {
	LimitMA             int   `json:"limit_ma"`
	LEDFullMA           int   `json:"led_full_ma"`
	EstimatedMA         int   `json:"estimated_ma"`
	EffectiveBrightness uint8 `json:"effective_brightness"`
}

// FlowStatus describes the flow effect.
type FlowStatus struct {
	Running    bool         `json:"running"`
	IntervalMS int64        `json:"interval_ms"`
	Tail       uint8        `json:"tail"`
	Head       int          `json:"head"`
	Color      led.RGBColor `json:"color"`
}

// AudioStatus describes the audio effect and the latest analysis.
type AudioStatus struct {
	Enabled             bool        `json:"enabled"`
	Kind                ledvis.Kind `json:"kind"`
	Sensitivity         float64     `json:"sensitivity"`
	AnalyzerSensitivity float64     `json:"analyzer_sensitivity"`
	Level               float64     `json:"level"`
	Low                 float64     `json:"low"`
	Mid                 float64     `json:"mid"`
	High                float64     `json:"high"`
	PitchHz             float64     `json:"pitch_hz"`
	PitchConf           float64     `json:"pitch_conf"`
}

// PitchStatus describes the pitch trigger.
type PitchStatus struct {
	PitchTrigger
	CooldownMS int64 `json:"cooldown_ms"`
}

// PointStatus describes the marker.
type PointStatus struct {
	Index int          `json:"index"`
	Set   bool         `json:"set"`
	Color led.RGBColor `json:"color"`
}

// Status returns a snapshot of the current state.
func (c *Controller) Status() Status {
	l1, l2 := c.indicator.State()
	pointIndex, pointColor, pointSet := c.point.Get()

	return Status{
		Mode:       c.mode,
		Step:       c.stepIndex,
		Brightness: c.canvas.Brightness(),
		Power: PowerStatus{
			LimitMA:             c.canvas.PowerLimitMA(),
			LEDFullMA:           c.canvas.LEDFullMA(),
			EstimatedMA:         c.canvas.LastEstimateMA(),
			EffectiveBrightness: c.canvas.EffectiveBrightness(),
		},
		Flow: FlowStatus{
			Running:    c.flow.Running(),
			IntervalMS: c.flow.Interval().Milliseconds(),
			Tail:       c.flow.Tail(),
			Head:       c.flow.Head(),
			Color:      c.flow.Color(),
		},
		Audio: AudioStatus{
			Enabled:             c.audio.Enabled(),
			Kind:                c.audio.Kind(),
			Sensitivity:         c.audio.Sensitivity(),
			AnalyzerSensitivity: c.analyzer.Sensitivity(),
			Level:               c.analyzer.Level(),
			Low:                 c.analyzer.Low(),
			Mid:                 c.analyzer.Mid(),
			High:                c.analyzer.High(),
			PitchHz:             c.analyzer.PitchHz(),
			PitchConf:           c.analyzer.PitchConf(),
		},
		Pitch: PitchStatus{
			PitchTrigger: c.pitch,
			CooldownMS:   c.pitch.Cooldown.Milliseconds(),
		},
		PitchMap: c.pitchMap,
		Point: PointStatus{
			Index: pointIndex,
			Set:   pointSet,
			Color: pointColor,
		},
		Indicator: [2]bool{l1, l2},
	}
}
