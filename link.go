package audioglow

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"libdb.so/audioglow/ledserial"
)

// ackTimeout is how long the link waits for the device to acknowledge a
// frame before sending the next one anyway.
const ackTimeout = time.Second

// deviceLink connects the daemon to the LED controller over serial. Frames
// are sent one at a time: a new frame is only written once the device has
// acknowledged every packet of the previous one. Frames rendered in between
// are coalesced into the latest.
type deviceLink struct {
	*Daemon
	port  serial.Port
	strip *frameStrip
}

func newDeviceLink(d *Daemon, port serial.Port) *deviceLink {
	return &deviceLink{
		Daemon: d,
		port:   port,
		strip:  newFrameStrip(d),
	}
}

func (d *deviceLink) start(ctx context.Context, errg *errgroup.Group) {
	errg.Go(func() error {
		<-ctx.Done()
		d.logger.Debug("closing serial port")
		if err := d.port.Close(); err != nil {
			return errors.Wrap(err, "failed to close serial port")
		}
		return ctx.Err()
	})

	packets := make(chan ledserial.OutgoingPacket)
	errg.Go(func() error {
		return d.writeLoop(ctx, d.port, packets)
	})
	errg.Go(func() error {
		if err := d.port.SetReadTimeout(serial.NoTimeout); err != nil {
			return errors.Wrap(err, "failed to reset read timeout")
		}
		return d.readPackets(ctx, d.port, packets)
	})
}

func (d *deviceLink) writeLoop(ctx context.Context, w io.Writer, packets <-chan ledserial.OutgoingPacket) error {
	d.logger.Debug("waiting 100ms for the read loop to start...")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
	}

	d.logger.Debug("sending initialize packet")
	if !d.writePacket(w, ledserial.InitializePacket{
		NumLEDs: uint16(d.cfg.LEDs.Count),
	}) {
		return errors.New("failed to initialize LEDs")
	}

	// pending counts packets the device has not acknowledged yet.
	pending := 1
	lastSent := time.Now()
	dirty := false
	lastBrightness := -1

	sendFrame := func() {
		d.strip.AcquireFrame(func(pix []uint8, brightness uint8) {
			if len(pix) == 0 {
				return
			}
			if int(brightness) != lastBrightness {
				if d.writePacket(w, ledserial.BrightnessPacket{Value: brightness}) {
					lastBrightness = int(brightness)
					pending++
				}
			}
			if d.writePacket(w, ledserial.SetPacket{Pix: pix}) {
				pending++
			}
		})
		lastSent = time.Now()
		dirty = false
	}

	ackCheck := time.NewTicker(ackTimeout / 4)
	defer ackCheck.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case p := <-packets:
			switch p := p.(type) {
			case ledserial.AckPacket:
				d.logger.Debug(
					"received ack packet from controller",
					"acked_for", p.IncomingPacketType)
				if pending > 0 {
					pending--
				}

			case ledserial.ErrorPacket:
				// The failed packet is never acked.
				d.logger.Warn(
					"received error packet from controller",
					"message", p.Message)
				pending = 0

			case ledserial.PanicPacket:
				d.logger.Error(
					"controller unrecoverably panicked",
					"message", p.Message)
				return errors.New("controller panicked")

			default:
				return errors.Errorf("received unexpected packet from controller: %s", p.Type())
			}

		case <-d.refresh:
			dirty = true

		case <-ackCheck.C:
			if pending > 0 && time.Since(lastSent) > ackTimeout {
				d.logger.Warn(
					"controller did not acknowledge in time",
					"pending", pending)
				pending = 0
			}
		}

		if dirty && pending == 0 {
			sendFrame()
		}
	}
}

// readPackets reads packets from the device. Samples and button levels are
// consumed here; everything else is forwarded to the write loop.
func (d *deviceLink) readPackets(ctx context.Context, r io.Reader, dst chan<- ledserial.OutgoingPacket) error {
	samples := make([]int, 0, ledserial.MaxSamples)

	for ctx.Err() == nil {
		p, err := ledserial.ReadOutgoingPacket(r, ledserial.ReadContext{})
		if err != nil {
			// A short read indicates a timeout. This is expected.
			// Ignore the error and try again.
			if errors.Is(err, io.EOF) {
				continue
			}
			if errors.Is(err, ledserial.ErrChecksumMismatch) {
				d.logger.Warn("dropping corrupted packet from controller")
				continue
			}
			return errors.Wrap(err, "failed to read packet")
		}

		switch p := p.(type) {
		case ledserial.SamplesPacket:
			samples = samples[:0]
			for _, s := range p.Samples {
				samples = append(samples, int(s))
			}
			d.samples.Push(samples...)
			continue

		case ledserial.ButtonPacket:
			d.logger.Debug(
				"button level changed",
				"level", p.Level)
			d.buttonLevel.Store(p.Level)
			continue

		case ledserial.LogPacket:
			d.logger.Info(
				"received log packet from controller",
				"message", p.Message)
			continue
		}

		d.logger.Debug(
			"received packet from controller",
			"type", p.Type())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case dst <- p:
			// ok
		}
	}

	return ctx.Err()
}

func (d *deviceLink) writePacket(w io.Writer, p ledserial.IncomingPacket) bool {
	d.logger.Debug(
		"writing packet",
		"type", p.Type())

	if err := ledserial.WriteIncomingPacket(w, p); err != nil {
		d.logger.Warn(
			"failed to write packet",
			"packet", p.Type(),
			"error", err)
		return false
	}

	return true
}
