package led

import (
	"encoding"
	"encoding/hex"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// RGBColor is a 24-bit color in R, G, B order.
type RGBColor [3]uint8

// Commonly used colors.
var (
	Black = RGBColor{0, 0, 0}
	Red   = RGBColor{255, 0, 0}
	Green = RGBColor{0, 255, 0}
	Blue  = RGBColor{0, 0, 255}
)

var (
	_ encoding.TextUnmarshaler = (*RGBColor)(nil)
	_ encoding.TextMarshaler   = RGBColor{}
)

// RGB creates a new color from its channels.
func RGB(r, g, b uint8) RGBColor {
	return RGBColor{r, g, b}
}

// HSV converts a hue in degrees with saturation and value in [0, 1] into an
// RGBColor.
func HSV(hue, sat, val float64) RGBColor {
	r, g, b := colorful.Hsv(hue, sat, val).Clamped().RGB255()
	return RGBColor{r, g, b}
}

// HSV8 converts an 8-bit hue wheel position (0 is red, 85 is green, 170 is
// blue) at full saturation and value into an RGBColor.
func HSV8(hue uint8) RGBColor {
	return HSV(float64(hue)*360/256, 1, 1)
}

// Uint32 returns the color packed as 0x00RRGGBB.
func (c RGBColor) Uint32() uint32 {
	return uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
}

// FromUint32 unpacks a 0x00RRGGBB color.
func FromUint32(v uint32) RGBColor {
	return RGBColor{uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

// Scale scales every channel by s/255.
func (c RGBColor) Scale(s uint8) RGBColor {
	return RGBColor{
		uint8(uint16(c[0]) * uint16(s) / 255),
		uint8(uint16(c[1]) * uint16(s) / 255),
		uint8(uint16(c[2]) * uint16(s) / 255),
	}
}

// Or returns the per-channel bitwise OR of c and other.
func (c RGBColor) Or(other RGBColor) RGBColor {
	return RGBColor{c[0] | other[0], c[1] | other[1], c[2] | other[2]}
}

// String returns the color as #rrggbb.
func (c RGBColor) String() string {
	return "#" + hex.EncodeToString(c[:])
}

// MarshalText implements encoding.TextMarshaler.
func (c RGBColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses #rrggbb or rrggbb.
func (c *RGBColor) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(string(text), "#")
	if len(s) != 6 {
		return errors.Errorf("invalid color %q: expected 6 hex digits", text)
	}
	var v RGBColor
	if _, err := hex.Decode(v[:], []byte(s)); err != nil {
		return errors.Wrapf(err, "invalid color %q", text)
	}
	*c = v
	return nil
}
