package main

import (
	"fmt"
	"machine"
	"time"

	"libdb.so/audioglow/esp32"
	"libdb.so/audioglow/internal/audio"
	"libdb.so/audioglow/internal/led"
	"libdb.so/audioglow/ledserial"
)

// sampleInterval is how often a block of samples is sent to the host.
const sampleInterval = time.Second * audio.SampleCount / audio.SampleRate

// Device stores the current state of the device.
type Device struct {
	host   *esp32.HostLink
	strip  *esp32.Strip
	mic    audio.Source
	button machine.Pin

	leds led.LEDs
}

// NewDevice creates a new device.
func NewDevice(serial machine.Serialer, strip *esp32.Strip, mic audio.Source, button machine.Pin) *Device {
	return &Device{
		host:   esp32.NewHostLink(serial),
		strip:  strip,
		mic:    mic,
		button: button,
	}
}

// Run reads and applies packets from the host forever.
func (d *Device) Run() {
	for {
		p, err := d.host.Receive()
		if err != nil {
			d.logError(err)
			continue
		}

		if err := d.handlePacket(p); err != nil {
			d.logError(err)
		}
	}
}

// Sample streams microphone samples and button level changes to the host
// forever.
func (d *Device) Sample() {
	samples := make([]uint16, audio.SampleCount)
	level := d.button.Get()
	d.host.Send(ledserial.ButtonPacket{Level: level})

	for {
		start := time.Now()
		for i := range samples {
			samples[i] = uint16(d.mic.Sample())
		}
		d.host.Send(ledserial.SamplesPacket{Samples: samples})

		if l := d.button.Get(); l != level {
			level = l
			d.host.Send(ledserial.ButtonPacket{Level: level})
		}

		time.Sleep(sampleInterval - time.Since(start))
	}
}

func (d *Device) log(msg string) {
	d.host.Send(ledserial.LogPacket{Message: msg})
}

func (d *Device) logError(err error) {
	d.host.Send(ledserial.ErrorPacket{Message: err.Error()})
}

func (d *Device) handlePacket(p ledserial.IncomingPacket) error {
	switch p := p.(type) {
	case ledserial.InitializePacket:
		if p.NumLEDs < 1 || int(p.NumLEDs) > d.strip.Len() {
			return fmt.Errorf("invalid number of LEDs: %d", p.NumLEDs)
		}
		d.host.SetNumLEDs(p.NumLEDs)
		d.leds = make(led.LEDs, p.NumLEDs)
		d.log(fmt.Sprintf("initialized %d LEDs", p.NumLEDs))
		if err := d.strip.Write(d.leds); err != nil {
			return err
		}

	case ledserial.ClearPacket:
		d.leds.Fill(led.Black)
		if err := d.strip.Write(d.leds); err != nil {
			return err
		}

	case ledserial.BrightnessPacket:
		d.strip.SetBrightness(p.Value)

	case ledserial.SetPacket:
		if len(p.Pix) != 3*len(d.leds) {
			return fmt.Errorf("invalid number of pixels: %d", len(p.Pix)/3)
		}
		copy(d.leds.AsPixels(), p.Pix)
		if err := d.strip.Write(d.leds); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	d.host.Ack(p)
	return nil
}
