//go:build tinygo

package esp32

import "machine"

// Pin assignments.
const (
	LEDPin    = machine.GPIO0
	MicPin    = machine.GPIO3
	ButtonPin = machine.GPIO9
)

// IndicatorPins are the two onboard LEDs.
var IndicatorPins = [2]machine.Pin{machine.GPIO12, machine.GPIO13}

// Indicator drives the onboard LEDs. It implements control.IndicatorPins.
type Indicator [2]machine.Pin

// NewIndicator configures the pins as outputs.
func NewIndicator(pins [2]machine.Pin) Indicator {
	for _, pin := range pins {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.Low()
	}
	return Indicator(pins)
}

func (i Indicator) Set(l1, l2 bool) {
	i[0].Set(l1)
	i[1].Set(l2)
}

// Mic reads the microphone ADC. It implements audio.Source.
type Mic struct {
	adc machine.ADC
}

// NewMic configures the ADC on the given pin.
func NewMic(pin machine.Pin) *Mic {
	machine.InitADC()
	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	return &Mic{adc: adc}
}

// Sample returns a 12-bit reading.
func (m *Mic) Sample() int {
	return int(m.adc.Get() >> 4)
}
