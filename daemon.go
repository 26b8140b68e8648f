package audioglow

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"libdb.so/audioglow/internal/audio"
	"libdb.so/audioglow/internal/button"
	"libdb.so/audioglow/internal/control"
	"libdb.so/audioglow/internal/led"
	"libdb.so/audioglow/internal/webctl"
)

// sampleBuffer is the capacity of the stream fed by the device or PortAudio.
const sampleBuffer = 8 * audio.SampleCount

// Daemon is the main audioglow daemon. It owns a control.Controller and ticks
// it at the configured rate. Other goroutines never touch the controller
// directly: they go through Do and Status.
type Daemon struct {
	cfg     *Config
	logger  *slog.Logger
	refresh chan struct{}

	commands chan command
	status   atomic.Pointer[control.Status]

	samples     *audio.Stream
	buttonLevel atomic.Bool
}

type command struct {
	f    func(*control.Controller)
	done chan struct{}
}

var _ RefreshQueuer = (*Daemon)(nil)

// NewDaemon creates a new audioglow daemon.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		refresh:  make(chan struct{}, 1),
		commands: make(chan command),
		samples:  audio.NewStream(sampleBuffer),
	}
	// Start out released.
	d.buttonLevel.Store(cfg.Button.ActiveLow)

	return d, nil
}

// QueueRefresh queues sending the latest frame to the device.
// This method is mainly used internally.
func (d *Daemon) QueueRefresh() {
	select {
	case d.refresh <- struct{}{}:
	default:
	}
}

// Do runs f on the controller between two ticks and waits for it to return.
// It fails if ctx is canceled first, including when the daemon is not
// running.
func (d *Daemon) Do(ctx context.Context, f func(*control.Controller)) error {
	cmd := command{f: f, done: make(chan struct{})}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.commands <- cmd:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-cmd.done:
		return nil
	}
}

// Status returns the status published after the latest tick. It returns the
// zero value before the daemon starts.
func (d *Daemon) Status() control.Status {
	if s := d.status.Load(); s != nil {
		return *s
	}
	return control.Status{}
}

// Run starts the daemon. It blocks until the given context is canceled or
// anything fails.
func (d *Daemon) Run(ctx context.Context) error {
	source, err := d.openSource()
	if err != nil {
		return err
	}

	errg, ctx := errgroup.WithContext(ctx)

	opts := control.Options{
		LEDCount:        d.cfg.LEDs.Count,
		Nodes:           d.cfg.LEDs.Nodes,
		Source:          source,
		ButtonActiveLow: d.cfg.Button.ActiveLow,
		Debounce:        time.Duration(d.cfg.Button.Debounce),
		LongPress:       time.Duration(d.cfg.Button.LongPress),
		Logger:          d.logger,
	}

	if d.cfg.Device != "" {
		port, err := serial.Open(d.cfg.Device, &serial.Mode{
			BaudRate: d.cfg.Baud,
		})
		if err != nil {
			return errors.Wrap(err, "failed to open serial port")
		}
		defer port.Close()

		link := newDeviceLink(d, port)
		opts.Strip = link.strip
		opts.Button = button.PinFunc(d.buttonLevel.Load)

		link.start(ctx, errg)
	}

	if d.cfg.Audio.Source == PortAudioSource {
		errg.Go(func() error {
			return audio.RunPortAudio(ctx, d.samples)
		})
	}

	if d.cfg.Web.Listen != "" {
		server := webctl.NewServer(d, d.logger)
		errg.Go(func() error {
			return server.ListenAndServe(ctx, d.cfg.Web.Listen)
		})
	}

	ctrl := control.New(opts)
	d.cfg.Apply(ctrl)

	errg.Go(func() error {
		return d.mainLoop(ctx, ctrl)
	})

	return errg.Wait()
}

func (d *Daemon) openSource() (audio.Source, error) {
	switch d.cfg.Audio.Source {
	case SineAudioSource:
		return audio.NewSine(d.cfg.Audio.SineHz, audio.ADCMidpoint/2), nil

	case WAVAudioSource:
		f, err := os.Open(d.cfg.Audio.WAV)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open WAV file")
		}
		src, err := audio.NewWAVSource(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "failed to load %s", d.cfg.Audio.WAV)
		}
		// The samples are fully decoded, so the file is no longer needed.
		f.Close()
		return src, nil

	case SerialAudioSource, PortAudioSource:
		return d.samples, nil

	default:
		return audio.Silence, nil
	}
}

func (d *Daemon) mainLoop(ctx context.Context, ctrl *control.Controller) error {
	ticker := time.NewTicker(time.Second / time.Duration(d.cfg.Rate))
	defer ticker.Stop()

	d.publish(ctrl)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-d.commands:
			cmd.f(ctrl)
			d.publish(ctrl)
			close(cmd.done)

		case now := <-ticker.C:
			if err := ctrl.Tick(now); err != nil {
				d.logger.Warn(
					"failed to show frame",
					"error", err)
			}
			d.publish(ctrl)
		}
	}
}

func (d *Daemon) publish(ctrl *control.Controller) {
	status := ctrl.Status()
	d.status.Store(&status)
}

// RefreshQueuer is the interface for types that can queue a refresh of the
// LEDs. The strip uses this interface to queue a refresh when a new frame is
// ready.
type RefreshQueuer interface {
	// QueueRefresh queues a refresh of the LEDs.
	// The daemon may choose to ignore this request if it is already refreshing
	// the LEDs.
	QueueRefresh()
}

// frameStrip is the led.Strip of the daemon. It keeps the latest frame for
// the serial link and queues a refresh on every Write.
type frameStrip struct {
	queuer RefreshQueuer

	mu         sync.Mutex
	pix        []uint8
	brightness uint8
	next       uint8
}

var _ led.Strip = (*frameStrip)(nil)

func newFrameStrip(queuer RefreshQueuer) *frameStrip {
	return &frameStrip{queuer: queuer}
}

// SetBrightness implements led.Strip. It applies to the next Write.
func (s *frameStrip) SetBrightness(b uint8) { s.next = b }

// Write implements led.Strip.
func (s *frameStrip) Write(leds led.LEDs) error {
	s.mu.Lock()
	s.pix = append(s.pix[:0], leds.AsPixels()...)
	s.brightness = s.next
	s.mu.Unlock()

	s.queuer.QueueRefresh()
	return nil
}

// AcquireFrame calls f with the latest frame. f must not keep pix after it
// returns.
func (s *frameStrip) AcquireFrame(f func(pix []uint8, brightness uint8)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.pix, s.brightness)
}
