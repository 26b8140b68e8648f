package control

import (
	"time"

	"libdb.so/audioglow/internal/led"
	"libdb.so/audioglow/internal/ledvis"
)

// The setters below never fail. Out of range values are clamped.

// EnableAudio turns the audio effect on or off. Turning it off also disarms
// the pitch trigger, disables the pitch map and clears the marker so nothing
// audio driven stays lit.
func (c *Controller) EnableAudio(enabled bool) {
	c.audio.SetEnabled(enabled)
	if !enabled {
		c.pitch.Armed = false
		c.pitchMap.Enabled = false
		c.audio.ClearExternalLength()
		c.point.Clear()
	}
}

// SetAudioKind selects the audio visualizer, clamped to the valid kinds.
func (c *Controller) SetAudioKind(kind int) {
	c.audio.SetKind(ledvis.ClampKind(kind))
}

// SetSensitivity sets the visualizer level multiplier.
func (c *Controller) SetSensitivity(v float64) {
	c.audio.SetSensitivity(v)
}

// SetAnalyzerSensitivity sets the band energy multiplier of the analyzer.
func (c *Controller) SetAnalyzerSensitivity(v float64) {
	c.analyzer.SetSensitivity(v)
}

// SetBeatThreshold sets the relative beat threshold of the beat pulse.
func (c *Controller) SetBeatThreshold(v float64) {
	c.audio.BeatPulse().SetThreshold(v)
}

// SetBeatCooldown sets the minimum time between two beats.
func (c *Controller) SetBeatCooldown(d time.Duration) {
	c.audio.BeatPulse().SetCooldown(d)
}

// ArmPitch arms the pitch trigger.
func (c *Controller) ArmPitch(targetHz, minConf, tolCents float64, cooldown time.Duration) {
	c.pitch.Armed = true
	c.pitch.TargetHz = targetHz
	c.pitch.MinConf = minConf
	c.pitch.TolCents = tolCents
	c.pitch.Cooldown = cooldown
	c.pitch.clamp()
}

// DisarmPitch disarms the pitch trigger and clears its marker.
func (c *Controller) DisarmPitch() {
	c.pitch.Armed = false
	c.point.Clear()
}

// SetPitchMap configures the pitch to length map.
func (c *Controller) SetPitchMap(enabled bool, scale, minHz, maxHz float64) {
	c.pitchMap = PitchMap{
		Enabled: enabled,
		Scale:   scale,
		MinHz:   minHz,
		MaxHz:   maxHz,
	}
	c.pitchMap.clamp()
	if !enabled {
		c.audio.ClearExternalLength()
	}
}

// StartFlow starts the flow animation.
func (c *Controller) StartFlow() { c.flow.Start() }

// StopFlow stops the flow animation.
func (c *Controller) StopFlow() { c.flow.Stop() }

// SetFlow sets the flow color, tail length and step interval.
func (c *Controller) SetFlow(color led.RGBColor, tail int, interval time.Duration) {
	c.flow.SetColor(color)
	c.flow.SetTail(uint8(clampInt(tail, 0, 255)))
	c.flow.SetInterval(interval)
}

// SetPoint places the marker at a path position.
func (c *Controller) SetPoint(index int, color led.RGBColor) {
	c.point.Set(index, color)
}

// ClearPoint removes the marker.
func (c *Controller) ClearPoint() { c.point.Clear() }

// SetBrightness sets the global brightness, clamped to [0, 255].
func (c *Controller) SetBrightness(v int) {
	c.canvas.SetBrightness(uint8(clampInt(v, 0, 255)))
}

// SetPowerLimit sets the power budget in mA. Zero disables limiting.
func (c *Controller) SetPowerLimit(limitMA int) {
	c.canvas.SetPowerLimitMA(limitMA)
}

// SetLEDFullMA sets the draw of one LED at full white. Non-positive values
// select the default.
func (c *Controller) SetLEDFullMA(mA int) {
	c.canvas.SetLEDFullMA(mA)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
