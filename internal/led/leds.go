package led

import (
	"io"
	"unsafe"
)

// LEDs describes a strip of LEDs. It is a preallocated slice of RGBColor.
type LEDs []RGBColor

// WriteTo implements io.WriterTo. It writes the LED strip to the given writer
// as a series of RGBColor values.
func (l LEDs) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, c := range l {
		n, err := w.Write(c[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// AsPixels returns the LED strip as a slice of uint8 values. Each LED is
// represented by three values, one for each color channel. The returned slice
// aliases l.
func (l LEDs) AsPixels() []uint8 {
	if len(l) == 0 {
		return nil
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(&l[0])), 3*len(l))
}

// ChannelSum returns the sum of every channel byte of every LED.
func (l LEDs) ChannelSum() int {
	var sum int
	for _, c := range l {
		sum += int(c[0]) + int(c[1]) + int(c[2])
	}
	return sum
}

// Fill sets every LED to the given color.
func (l LEDs) Fill(c RGBColor) {
	for i := range l {
		l[i] = c
	}
}
