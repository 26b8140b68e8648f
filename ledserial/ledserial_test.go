package ledserial

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestIncomingPackets(t *testing.T) {
	ctx := ReadContext{NumLEDs: 2}

	packets := []IncomingPacket{
		InitializePacket{NumLEDs: 2},
		ClearPacket{},
		SetPacket{Pix: []uint8{1, 2, 3, 4, 5, 6}},
		BrightnessPacket{Value: 60},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		if err := WriteIncomingPacket(&buf, p); err != nil {
			t.Fatalf("cannot write %s: %v", p.Type(), err)
		}
	}

	for _, want := range packets {
		got, err := ReadIncomingPacket(&buf, ctx)
		if err != nil {
			t.Fatalf("cannot read %s: %v", want.Type(), err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	}

	if buf.Len() != 0 {
		t.Errorf("%d bytes left over", buf.Len())
	}
}

func TestOutgoingPackets(t *testing.T) {
	packets := []OutgoingPacket{
		ErrorPacket{Message: "strip not initialized"},
		PanicPacket{Message: "out of memory"},
		LogPacket{Message: ""},
		AckPacket{IncomingPacketType: TypeSetPacket},
		SamplesPacket{Samples: []uint16{0, 2048, 4095}},
		ButtonPacket{Level: true},
		ButtonPacket{Level: false},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		if err := WriteOutgoingPacket(&buf, p); err != nil {
			t.Fatalf("cannot write %s: %v", p.Type(), err)
		}
	}

	for _, want := range packets {
		got, err := ReadOutgoingPacket(&buf, ReadContext{})
		if err != nil {
			t.Fatalf("cannot read %s: %v", want.Type(), err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	}
}

func TestChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIncomingPacket(&buf, BrightnessPacket{Value: 10}); err != nil {
		t.Fatal(err)
	}

	b := buf.Bytes()
	b[1] ^= 0xFF

	_, err := ReadIncomingPacket(bytes.NewReader(b), ReadContext{})
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}

func TestTooManySamples(t *testing.T) {
	p := SamplesPacket{Samples: make([]uint16, MaxSamples+1)}
	if err := WriteOutgoingPacket(&bytes.Buffer{}, p); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnknownPacketType(t *testing.T) {
	b := []byte{0xEE, 0, 0, 0, 0}
	if _, err := ReadIncomingPacket(bytes.NewReader(b), ReadContext{}); err == nil {
		t.Fatal("expected error for unknown incoming type")
	}
	if _, err := ReadOutgoingPacket(bytes.NewReader(b), ReadContext{}); err == nil {
		t.Fatal("expected error for unknown outgoing type")
	}
}
