package control

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode selects between the continuous flow animation and the manually
// stepped marker.
type Mode uint8

const (
	ModeFlow Mode = iota
	ModeStep
)

func (m Mode) String() string {
	switch m {
	case ModeFlow:
		return "FLOW"
	case ModeStep:
		return "STEP"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "FLOW":
		*m = ModeFlow
	case "STEP":
		*m = ModeStep
	default:
		return errors.Errorf("unknown mode %q", text)
	}
	return nil
}
