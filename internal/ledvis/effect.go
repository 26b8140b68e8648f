package ledvis

import (
	"time"

	"libdb.so/audioglow/internal/effect"
	"libdb.so/audioglow/internal/led"
)

// AudioEffect draws a Visualizer as an effect.Effect. It is disabled until
// SetEnabled(true) is called.
type AudioEffect struct {
	*Visualizer

	path     *led.Path
	analysis Analysis

	enabled     bool
	externalLen int
	useExternal bool
}

var _ effect.Effect = (*AudioEffect)(nil)

// NewAudioEffect creates a disabled audio effect drawing analysis along path.
func NewAudioEffect(path *led.Path, analysis Analysis) *AudioEffect {
	return &AudioEffect{
		Visualizer: NewVisualizer(),
		path:       path,
		analysis:   analysis,
	}
}

// Enabled returns whether the effect draws anything.
func (e *AudioEffect) Enabled() bool { return e.enabled }

// SetEnabled turns drawing on or off.
func (e *AudioEffect) SetEnabled(enabled bool) { e.enabled = enabled }

// SetExternalLength makes the VU and pitch variants draw n positions instead
// of deriving the length from the level.
func (e *AudioEffect) SetExternalLength(n int) {
	e.externalLen = max(n, 0)
	e.useExternal = true
}

// ClearExternalLength goes back to level derived bar lengths.
func (e *AudioEffect) ClearExternalLength() {
	e.useExternal = false
}

// ExternalLength returns the external length and whether it is in use.
func (e *AudioEffect) ExternalLength() (int, bool) {
	return e.externalLen, e.useExternal
}

// Render implements effect.Effect.
func (e *AudioEffect) Render(now time.Time) {
	if !e.enabled || e.path.Size() == 0 {
		return
	}

	length := -1
	if e.useExternal {
		length = e.externalLen
	}

	e.Visualizer.Render(e.path, e.analysis, now, length)
}
