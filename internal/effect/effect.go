// Package effect contains the spatial effects drawn along a led.Path and the
// Manager that composes them into canvases every frame.
package effect

import (
	"time"

	"libdb.so/audioglow/internal/led"
)

// Effect renders into a canvas. Render is called once per frame after the
// canvas has been cleared and must not block.
type Effect interface {
	Render(now time.Time)
}

// Manager clears, renders and flushes a fixed set of canvases and effects.
// Effects render in the order they were added, so later opaque effects win
// over earlier ones at the same LED.
type Manager struct {
	canvases []*led.Canvas
	effects  []Effect
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// AddCanvas registers a canvas to be cleared and shown every tick.
func (m *Manager) AddCanvas(c *led.Canvas) {
	m.canvases = append(m.canvases, c)
}

// AddEffect registers an effect. Effects are rendered in registration order.
func (m *Manager) AddEffect(e Effect) {
	m.effects = append(m.effects, e)
}

// Tick draws one frame. Every canvas is shown even if an earlier one fails;
// the first error is returned.
func (m *Manager) Tick(now time.Time) error {
	for _, c := range m.canvases {
		c.Clear()
	}

	for _, e := range m.effects {
		e.Render(now)
	}

	var firstErr error
	for _, c := range m.canvases {
		if err := c.Show(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
