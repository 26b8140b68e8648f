//go:build !portaudio

package audio

import (
	"context"

	"github.com/pkg/errors"
)

// PortAudioAvailable is true when the binary was built with PortAudio.
const PortAudioAvailable = false

// RunPortAudio always fails; build with -tags portaudio to enable capture.
func RunPortAudio(ctx context.Context, dst *Stream) error {
	return errors.New("built without portaudio support")
}
