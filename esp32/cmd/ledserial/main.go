// Command ledserial turns the board into a serial LED device for the host
// daemon: the host renders frames and the device streams microphone samples
// and button levels back.
package main

import (
	"machine"

	"libdb.so/audioglow/esp32"
)

func main() {
	esp32.ButtonPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	d := NewDevice(
		machine.Serial,
		esp32.NewStrip(esp32.LEDPin, esp32.NumLEDs),
		esp32.NewMic(esp32.MicPin),
		esp32.ButtonPin,
	)

	go d.Sample()
	d.Run()
}
