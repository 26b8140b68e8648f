// Command audioglow is the standalone firmware: it samples the microphone,
// reads the button and renders the effects on the device itself.
package main

import (
	"machine"
	"time"

	"libdb.so/audioglow/esp32"
	"libdb.so/audioglow/internal/control"
)

func main() {
	esp32.ButtonPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	ctrl := control.New(control.Options{
		LEDCount:        esp32.NumLEDs,
		Nodes:           esp32.Nodes(),
		Strip:           esp32.NewStrip(esp32.LEDPin, esp32.NumLEDs),
		Source:          esp32.NewMic(esp32.MicPin),
		Button:          esp32.ButtonPin,
		ButtonActiveLow: true,
		Indicator:       esp32.NewIndicator(esp32.IndicatorPins),
	})
	esp32.Configure(ctrl)

	for {
		if err := ctrl.Tick(time.Now()); err != nil {
			println("failed to show frame:", err.Error())
		}
		time.Sleep(time.Millisecond)
	}
}
