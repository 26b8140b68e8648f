//go:build tinygo

package esp32

import (
	"image/color"
	"machine"
	"runtime/interrupt"

	"libdb.so/audioglow/internal/led"
	"tinygo.org/x/drivers/ws2812"
)

// Strip drives a WS2812 strip. It implements led.Strip.
type Strip struct {
	dev        ws2812.Device
	buf        []color.RGBA
	brightness uint8
}

var _ led.Strip = (*Strip)(nil)

// NewStrip creates a strip of n LEDs on the given pin.
func NewStrip(pin machine.Pin, n int) *Strip {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &Strip{
		dev:        ws2812.New(pin),
		buf:        make([]color.RGBA, n),
		brightness: 255,
	}
}

// Len returns the number of LEDs.
func (s *Strip) Len() int { return len(s.buf) }

func (s *Strip) SetBrightness(b uint8) { s.brightness = b }

// Write scales the colors by the brightness and writes them out. LEDs past
// the strip length are ignored.
func (s *Strip) Write(leds led.LEDs) error {
	n := min(len(leds), len(s.buf))
	for i, c := range leds[:n] {
		c = c.Scale(s.brightness)
		s.buf[i] = color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}
	}

	var err error
	critical(func() { err = s.dev.WriteColors(s.buf[:n]) })
	return err
}

func critical(f func()) {
	state := interrupt.Disable()
	f()
	interrupt.Restore(state)
}
