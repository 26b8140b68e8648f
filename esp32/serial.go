//go:build tinygo

package esp32

import (
	"machine"
	"runtime"
	"sync"
	"time"

	"libdb.so/audioglow/ledserial"
)

// HostLink speaks the ledserial protocol with the host daemon over a UART.
// Packets from the host are read by a single goroutine. Packets to the host
// may be sent from any goroutine.
type HostLink struct {
	port   uartPort
	rctx   ledserial.ReadContext
	sendMu sync.Mutex
}

// NewHostLink creates a link over the given serial port.
func NewHostLink(serial machine.Serialer) *HostLink {
	return &HostLink{port: uartPort{serial}}
}

// SetNumLEDs sets the strip length used to decode SetPackets. It must be
// called from the reading goroutine.
func (l *HostLink) SetNumLEDs(n uint16) { l.rctx.NumLEDs = n }

// Receive blocks until a whole packet arrived from the host.
func (l *HostLink) Receive() (ledserial.IncomingPacket, error) {
	return ledserial.ReadIncomingPacket(l.port, l.rctx)
}

// Send writes a packet to the host. Write errors are dropped: the host
// notices missing acks and recovers on its own.
func (l *HostLink) Send(p ledserial.OutgoingPacket) {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	ledserial.WriteOutgoingPacket(l.port, p)
}

// Ack acknowledges a packet received from the host.
func (l *HostLink) Ack(p ledserial.IncomingPacket) {
	l.Send(ledserial.AckPacket{IncomingPacketType: p.Type()})
}

// uartPort adapts a machine.Serialer to io.ReadWriter. Reads poll the RX
// buffer and return 0 bytes when it is empty, which io.ReadFull retries.
type uartPort struct {
	machine.Serialer
}

func (p uartPort) Read(b []byte) (int, error) {
	n := min(p.Buffered(), len(b))
	if n == 0 {
		// Let the sampling goroutine run while the host is quiet.
		time.Sleep(time.Millisecond)
		return 0, nil
	}

	for i := range b[:n] {
		c, err := p.ReadByte()
		if err != nil {
			return i, err
		}
		b[i] = c
	}

	runtime.Gosched()
	return n, nil
}

func (p uartPort) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := p.WriteByte(c); err != nil {
			return i, err
		}
	}
	runtime.Gosched()
	return len(b), nil
}
