//go:build portaudio

package audio

import (
	"context"
	"log/slog"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// PortAudioAvailable is true when the binary was built with PortAudio.
const PortAudioAvailable = true

// RunPortAudio captures mono audio from the default input device into dst
// until ctx is canceled.
func RunPortAudio(ctx context.Context, dst *Stream) error {
	if err := portaudio.Initialize(); err != nil {
		return errors.Wrap(err, "failed to initialize portaudio")
	}
	defer portaudio.Terminate()

	buf := make([]int16, SampleCount)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return errors.Wrap(err, "failed to open default input stream")
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return errors.Wrap(err, "failed to start input stream")
	}
	defer stream.Stop()

	samples := make([]int, len(buf))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			// Overflows drop a buffer but the stream stays usable.
			slog.Debug(
				"portaudio read error",
				"err", err)
			continue
		}

		for i, v := range buf {
			samples[i] = FromInt16(v)
		}
		dst.Push(samples...)
	}
}
