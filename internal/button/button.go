// Package button debounces a push button and turns presses into short and
// long press events.
package button

import "time"

const (
	// DefaultDebounce is the time a level has to hold before it is accepted.
	DefaultDebounce = 40 * time.Millisecond
	// DefaultLongPress is the press duration from which a press is long.
	DefaultLongPress = 600 * time.Millisecond
)

// Pin reads the raw level of the button input. It is satisfied by
// machine.Pin on TinyGo.
type Pin interface {
	Get() bool
}

// PinFunc adapts a function to a Pin.
type PinFunc func() bool

// Get implements Pin.
func (f PinFunc) Get() bool { return f() }

// Debouncer polls a Pin. Raw level changes restart the debounce timer and a
// level is only accepted once it held for longer than the debounce window.
// Every accepted press and release pair raises one event, short or long,
// stored in a single slot until consumed.
type Debouncer struct {
	pin       Pin
	activeLow bool
	debounce  time.Duration
	longPress time.Duration

	lastRaw    bool
	lastChange time.Time
	pressed    bool
	pressedAt  time.Time

	shortEvent bool
	longEvent  bool
}

// New creates a debouncer. activeLow means the button pulls the pin low when
// pressed.
func New(pin Pin, activeLow bool, debounce, longPress time.Duration) *Debouncer {
	return &Debouncer{
		pin:       pin,
		activeLow: activeLow,
		debounce:  debounce,
		longPress: longPress,
	}
}

// Begin samples the initial level and starts the debounce timer.
func (d *Debouncer) Begin(now time.Time) {
	d.lastRaw = d.pin.Get()
	d.lastChange = now
	d.pressed = d.isPressed(d.lastRaw)
	d.pressedAt = now
}

// Poll samples the pin once.
func (d *Debouncer) Poll(now time.Time) {
	raw := d.pin.Get()
	if raw != d.lastRaw {
		d.lastRaw = raw
		d.lastChange = now
	}

	if now.Sub(d.lastChange) <= d.debounce {
		return
	}

	pressed := d.isPressed(raw)
	if pressed == d.pressed {
		return
	}
	d.pressed = pressed

	if pressed {
		d.pressedAt = now
		return
	}

	if now.Sub(d.pressedAt) >= d.longPress {
		d.longEvent = true
	} else {
		d.shortEvent = true
	}
}

// Pressed returns the debounced state.
func (d *Debouncer) Pressed() bool { return d.pressed }

// ConsumeShort reports whether a short press happened since the last call.
func (d *Debouncer) ConsumeShort() bool {
	v := d.shortEvent
	d.shortEvent = false
	return v
}

// ConsumeLong reports whether a long press happened since the last call.
func (d *Debouncer) ConsumeLong() bool {
	v := d.longEvent
	d.longEvent = false
	return v
}

func (d *Debouncer) isPressed(level bool) bool {
	return level != d.activeLow
}
