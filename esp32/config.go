// Package esp32 contains the board support for the ESP32-C3 controller: the
// LED layout, the pin assignments and the firmware defaults.
package esp32

import (
	"time"

	"libdb.so/audioglow/internal/control"
	"libdb.so/audioglow/internal/led"
)

var (
	NumLEDs  = 160
	BackLEDs = [2]int{40, NumLEDs}
	SideLEDs = [2]int{0, BackLEDs[0]}
)

// Firmware defaults.
const (
	Brightness   = 60
	PowerLimitMA = 1500
	LEDFullMA    = 60

	FlowTail     = 30
	FlowInterval = 30 * time.Millisecond

	Sensitivity = 1.2
)

// EachLED calls f for each LED in the range [leds[0], leds[1]).
func EachLED(leds [2]int, f func(int)) {
	for i := leds[0]; i < leds[1]; i++ {
		f(i)
	}
}

// Nodes returns the path the effects run along: up the side LEDs, then back
// down the back LEDs.
func Nodes() []int {
	nodes := make([]int, 0, NumLEDs)
	EachLED(SideLEDs, func(i int) { nodes = append(nodes, i) })
	EachLED(BackLEDs, func(i int) {
		nodes = append(nodes, BackLEDs[1]-1-(i-BackLEDs[0]))
	})
	return nodes
}

// Configure applies the firmware defaults to the controller.
func Configure(ctrl *control.Controller) {
	ctrl.SetBrightness(Brightness)
	ctrl.SetPowerLimit(PowerLimitMA)
	ctrl.SetLEDFullMA(LEDFullMA)
	ctrl.SetFlow(led.Green, FlowTail, FlowInterval)
	ctrl.StartFlow()
	ctrl.SetSensitivity(Sensitivity)
	ctrl.EnableAudio(false)
}
