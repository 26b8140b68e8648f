package effect

import (
	"time"

	"libdb.so/audioglow/internal/led"
)

const (
	// MinFlowInterval and MaxFlowInterval bound the time between two head
	// steps.
	MinFlowInterval = time.Millisecond
	MaxFlowInterval = 65535 * time.Millisecond

	// DefaultFlowInterval is the step interval of a new Flow.
	DefaultFlowInterval = 40 * time.Millisecond
	// DefaultFlowTail is the tail length of a new Flow.
	DefaultFlowTail = 8
)

// Flow moves a head with a fading tail around the path, one position per
// interval.
type Flow struct {
	path *led.Path

	color    led.RGBColor
	tail     uint8
	interval time.Duration

	running  bool
	head     int
	lastStep time.Time
}

var _ Effect = (*Flow)(nil)

// NewFlow creates a stopped flow on the given path.
func NewFlow(path *led.Path) *Flow {
	return &Flow{
		path:     path,
		color:    led.Blue,
		tail:     DefaultFlowTail,
		interval: DefaultFlowInterval,
	}
}

// Color returns the head color.
func (f *Flow) Color() led.RGBColor { return f.color }

// SetColor sets the head color.
func (f *Flow) SetColor(c led.RGBColor) { f.color = c }

// Tail returns the number of trailing positions behind the head.
func (f *Flow) Tail() uint8 { return f.tail }

// SetTail sets the number of trailing positions behind the head.
func (f *Flow) SetTail(n uint8) { f.tail = n }

// Interval returns the time between two head steps.
func (f *Flow) Interval() time.Duration { return f.interval }

// SetInterval sets the time between two head steps, clamped to
// [MinFlowInterval, MaxFlowInterval].
func (f *Flow) SetInterval(d time.Duration) {
	f.interval = ClampFlowInterval(d)
}

// ClampFlowInterval clamps d to [MinFlowInterval, MaxFlowInterval].
func ClampFlowInterval(d time.Duration) time.Duration {
	switch {
	case d < MinFlowInterval:
		return MinFlowInterval
	case d > MaxFlowInterval:
		return MaxFlowInterval
	default:
		return d
	}
}

// Start resumes the flow. The first step happens one interval after the next
// render.
func (f *Flow) Start() {
	if !f.running {
		f.running = true
		f.lastStep = time.Time{}
	}
}

// Stop freezes the flow and stops drawing it.
func (f *Flow) Stop() { f.running = false }

// Running returns whether the flow is drawn.
func (f *Flow) Running() bool { return f.running }

// Head returns the logical path position of the head.
func (f *Flow) Head() int { return f.head }

// Render implements Effect.
func (f *Flow) Render(now time.Time) {
	size := f.path.Size()
	if !f.running || size == 0 {
		return
	}

	switch {
	case f.lastStep.IsZero():
		f.lastStep = now
	case now.Sub(f.lastStep) >= f.interval:
		f.head = (f.head + 1) % size
		f.lastStep = now
	}

	canvas := f.path.Canvas()
	tail := int(f.tail)
	for k := 0; k <= tail; k++ {
		canvas.BlendPixel(f.path.Node(f.head-k), f.color.Scale(TailBrightness(k, tail)))
	}
}

// TailBrightness returns the brightness of the position k steps behind the
// head of a flow with the given tail length.
func TailBrightness(k, tail int) uint8 {
	return uint8(255 - 255*k/(tail+1))
}
