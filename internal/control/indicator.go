package control

import "time"

// IndicatorBlink is the blink period of L1 while the flow runs.
const IndicatorBlink = 300 * time.Millisecond

// IndicatorPins drives the two onboard indicator LEDs.
type IndicatorPins interface {
	Set(l1, l2 bool)
}

// Indicator mirrors the mode on two onboard LEDs. In FLOW mode L1 blinks
// while the flow runs and stays on while it is stopped. In STEP mode L2 is on
// and briefly inverted by Flash.
type Indicator struct {
	pins IndicatorPins

	lastBlink  time.Time
	blink      bool
	flashUntil time.Time

	l1, l2 bool
}

// NewIndicator creates an indicator. pins may be nil.
func NewIndicator(pins IndicatorPins) *Indicator {
	return &Indicator{pins: pins}
}

// Flash inverts L2 for d starting at now.
func (i *Indicator) Flash(now time.Time, d time.Duration) {
	i.flashUntil = now.Add(d)
}

// Tick updates the LEDs for the given state.
func (i *Indicator) Tick(now time.Time, mode Mode, flowRunning bool) {
	switch mode {
	case ModeFlow:
		if flowRunning {
			if i.lastBlink.IsZero() || now.Sub(i.lastBlink) >= IndicatorBlink {
				i.lastBlink = now
				i.blink = !i.blink
			}
			i.l1 = i.blink
		} else {
			i.l1 = true
		}
		i.l2 = false

	case ModeStep:
		i.l1 = false
		i.l2 = !now.Before(i.flashUntil)
	}

	if i.pins != nil {
		i.pins.Set(i.l1, i.l2)
	}
}

// State returns the last levels written to the LEDs.
func (i *Indicator) State() (l1, l2 bool) {
	return i.l1, i.l2
}
