package effect

import (
	"time"

	"libdb.so/audioglow/internal/led"
)

// Point lights a single path position with an opaque color until cleared.
type Point struct {
	path  *led.Path
	index int
	color led.RGBColor
	set   bool
}

var _ Effect = (*Point)(nil)

// NewPoint creates an unset point on the given path.
func NewPoint(path *led.Path) *Point {
	return &Point{path: path}
}

// Set places the point at logical position index.
func (p *Point) Set(index int, color led.RGBColor) {
	p.index = index
	p.color = color
	p.set = true
}

// Clear removes the point.
func (p *Point) Clear() { p.set = false }

// Get returns the position and color of the point and whether it is set.
func (p *Point) Get() (index int, color led.RGBColor, ok bool) {
	return p.index, p.color, p.set
}

// Render implements Effect.
func (p *Point) Render(time.Time) {
	if !p.set || p.path.Size() == 0 {
		return
	}
	p.path.Canvas().SetPixel(p.path.Node(p.index), p.color)
}
