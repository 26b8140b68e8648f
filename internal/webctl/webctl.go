// Package webctl implements the HTTP control surface of the daemon. Every
// endpoint is a GET with query parameters; out of range values are clamped by
// the controller.
package webctl

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"libdb.so/audioglow/internal/control"
	"libdb.so/audioglow/internal/led"
)

// StatusInterval is how often status is pushed to websocket clients.
const StatusInterval = 100 * time.Millisecond

// Backend owns the controller. Do must run f on the goroutine that ticks the
// controller.
type Backend interface {
	Do(ctx context.Context, f func(*control.Controller)) error
	Status() control.Status
}

// Server is the HTTP control surface.
type Server struct {
	backend  Backend
	logger   *slog.Logger
	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a new control surface for the given backend.
func NewServer(backend Backend, logger *slog.Logger) *Server {
	s := &Server{
		backend: backend,
		logger:  logger,
		mux:     http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/audio", s.handleAudio)
	s.mux.HandleFunc("/api/audio/mode", s.handleAudioMode)
	s.mux.HandleFunc("/api/audio/sensitivity", s.handleAudioSensitivity)
	s.mux.HandleFunc("/api/pitch", s.handlePitch)
	s.mux.HandleFunc("/api/pitchmap", s.handlePitchMap)
	s.mux.HandleFunc("/api/flow/start", s.handleFlowStart)
	s.mux.HandleFunc("/api/flow/stop", s.handleFlowStop)
	s.mux.HandleFunc("/api/brightness", s.handleBrightness)
	s.mux.HandleFunc("/api/power", s.handlePower)
	s.mux.HandleFunc("/api/point", s.handlePoint)
	s.mux.HandleFunc("/ws", s.handleWebSocket)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves the control surface on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(
			"serving control surface",
			"addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "failed to serve control surface")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(
			"failed to shut down control surface",
			"error", err)
	}

	return ctx.Err()
}

type okResponse map[string]any

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, okResponse{"ok": false, "error": err.Error()})
}

func writeOK(w http.ResponseWriter, fields okResponse) {
	if fields == nil {
		fields = okResponse{}
	}
	fields["ok"] = true
	writeJSON(w, http.StatusOK, fields)
}

// do runs f on the controller. It writes an error response and returns false
// if the request was canceled first.
func (s *Server) do(w http.ResponseWriter, r *http.Request, f func(*control.Controller)) bool {
	if err := s.backend.Do(r.Context(), f); err != nil {
		writeError(w, http.StatusServiceUnavailable, errors.Wrap(err, "controller unavailable"))
		return false
	}
	return true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Status())
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	enable := q.requiredBool("enable")
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	if s.do(w, r, func(c *control.Controller) { c.EnableAudio(enable) }) {
		writeOK(w, okResponse{"enabled": enable})
	}
}

func (s *Server) handleAudioMode(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	mode := q.requiredInt("mode")
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	var kind string
	ok := s.do(w, r, func(c *control.Controller) {
		c.SetAudioKind(mode)
		kind = c.Audio().Kind().String()
		mode = int(c.Audio().Kind())
	})
	if ok {
		writeOK(w, okResponse{"mode": mode, "kind": kind})
	}
}

func (s *Server) handleAudioSensitivity(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	value := q.optionalFloat("value")
	analyzer := q.optionalFloat("analyzer")
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	var sens, analyzerSens float64
	ok := s.do(w, r, func(c *control.Controller) {
		if value != nil {
			c.SetSensitivity(*value)
		}
		if analyzer != nil {
			c.SetAnalyzerSensitivity(*analyzer)
		}
		sens = c.Audio().Sensitivity()
		analyzerSens = c.Analyzer().Sensitivity()
	})
	if ok {
		writeOK(w, okResponse{"sensitivity": sens, "analyzer_sensitivity": analyzerSens})
	}
}

func (s *Server) handlePitch(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	arm := q.requiredBool("arm")
	target := q.optionalNote("target")
	conf := q.optionalFloat("conf")
	tol := q.optionalFloat("tol")
	cooldown := q.optionalInt("cooldown")
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	var trigger control.PitchTrigger
	ok := s.do(w, r, func(c *control.Controller) {
		if !arm {
			c.DisarmPitch()
			trigger = c.PitchTrigger()
			return
		}

		p := c.PitchTrigger()
		if target != nil {
			p.TargetHz = *target
		}
		if conf != nil {
			p.MinConf = *conf
		}
		if tol != nil {
			p.TolCents = *tol
		}
		if cooldown != nil {
			p.Cooldown = time.Duration(*cooldown) * time.Millisecond
		}
		c.ArmPitch(p.TargetHz, p.MinConf, p.TolCents, p.Cooldown)
		trigger = c.PitchTrigger()
	})
	if ok {
		writeOK(w, okResponse{
			"armed":       trigger.Armed,
			"target_hz":   trigger.TargetHz,
			"conf":        trigger.MinConf,
			"tol_cents":   trigger.TolCents,
			"cooldown_ms": trigger.Cooldown.Milliseconds(),
		})
	}
}

func (s *Server) handlePitchMap(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	enable := q.optionalBool("enable")
	scale := q.optionalFloat("scale")
	minHz := q.optionalFloat("min")
	maxHz := q.optionalFloat("max")
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	var m control.PitchMap
	ok := s.do(w, r, func(c *control.Controller) {
		m = c.PitchMap()
		if enable != nil {
			m.Enabled = *enable
		}
		if scale != nil {
			m.Scale = *scale
		}
		if minHz != nil {
			m.MinHz = *minHz
		}
		if maxHz != nil {
			m.MaxHz = *maxHz
		}
		c.SetPitchMap(m.Enabled, m.Scale, m.MinHz, m.MaxHz)
		m = c.PitchMap()
	})
	if ok {
		writeOK(w, okResponse{
			"enable": m.Enabled,
			"scale":  m.Scale,
			"min":    m.MinHz,
			"max":    m.MaxHz,
		})
	}
}

func (s *Server) handleFlowStart(w http.ResponseWriter, r *http.Request) {
	if s.do(w, r, (*control.Controller).StartFlow) {
		writeOK(w, nil)
	}
}

func (s *Server) handleFlowStop(w http.ResponseWriter, r *http.Request) {
	if s.do(w, r, (*control.Controller).StopFlow) {
		writeOK(w, nil)
	}
}

func (s *Server) handleBrightness(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	value := q.requiredInt("value")
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	var brightness uint8
	ok := s.do(w, r, func(c *control.Controller) {
		c.SetBrightness(value)
		brightness = c.Canvas().Brightness()
	})
	if ok {
		writeOK(w, okResponse{"brightness": brightness})
	}
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	limit := q.optionalInt("limit_ma")
	full := q.optionalInt("led_full_ma")
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	var power control.PowerStatus
	ok := s.do(w, r, func(c *control.Controller) {
		if limit != nil {
			c.SetPowerLimit(*limit)
		}
		if full != nil {
			c.SetLEDFullMA(*full)
		}
		power = c.Status().Power
	})
	if ok {
		writeOK(w, okResponse{
			"changed":      limit != nil || full != nil,
			"limit_ma":     power.LimitMA,
			"led_full_ma":  power.LEDFullMA,
			"estimated_ma": power.EstimatedMA,
		})
	}
}

func (s *Server) handlePoint(w http.ResponseWriter, r *http.Request) {
	q := query{r: r}
	clearPoint := q.optionalBool("clear")
	if q.err == nil && clearPoint != nil && *clearPoint {
		if s.do(w, r, (*control.Controller).ClearPoint) {
			writeOK(w, okResponse{"set": false})
		}
		return
	}

	index := q.requiredInt("index")
	color := q.optionalColor("color")
	if q.err != nil {
		writeError(w, http.StatusBadRequest, q.err)
		return
	}

	pointColor := control.StepColor
	if color != nil {
		pointColor = *color
	}

	ok := s.do(w, r, func(c *control.Controller) {
		c.SetPoint(index, pointColor)
	})
	if ok {
		writeOK(w, okResponse{"set": true, "index": index, "color": pointColor})
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug(
			"failed to upgrade websocket",
			"error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain the connection so close frames are processed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(StatusInterval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteJSON(s.backend.Status()); err != nil {
			s.logger.Debug(
				"websocket client went away",
				"error", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// query parses query parameters, keeping the first error.
type query struct {
	r   *http.Request
	err error
}

func (q *query) lookup(name string) (string, bool) {
	if q.err != nil {
		return "", false
	}
	v := q.r.URL.Query()
	if !v.Has(name) {
		return "", false
	}
	return strings.TrimSpace(v.Get(name)), true
}

func (q *query) fail(name string, err error) {
	q.err = errors.Wrapf(err, "invalid %s", name)
}

func (q *query) requiredInt(name string) int {
	v := q.optionalInt(name)
	if v == nil {
		if q.err == nil {
			q.err = errors.Errorf("%s required", name)
		}
		return 0
	}
	return *v
}

func (q *query) optionalInt(name string) *int {
	s, ok := q.lookup(name)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		q.fail(name, err)
		return nil
	}
	return &v
}

func (q *query) requiredBool(name string) bool {
	v := q.optionalBool(name)
	if v == nil {
		if q.err == nil {
			q.err = errors.Errorf("%s required", name)
		}
		return false
	}
	return *v
}

// optionalBool accepts any integer, nonzero meaning true, as well as the
// strconv.ParseBool spellings.
func (q *query) optionalBool(name string) *bool {
	s, ok := q.lookup(name)
	if !ok {
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		b := i != 0
		return &b
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		q.fail(name, err)
		return nil
	}
	return &b
}

func (q *query) optionalFloat(name string) *float64 {
	s, ok := q.lookup(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		q.fail(name, err)
		return nil
	}
	return &v
}

func (q *query) optionalNote(name string) *float64 {
	s, ok := q.lookup(name)
	if !ok {
		return nil
	}
	v, err := control.ParseNote(s)
	if err != nil {
		q.fail(name, err)
		return nil
	}
	return &v
}

// optionalColor accepts "r,g,b" or a hex color.
func (q *query) optionalColor(name string) *led.RGBColor {
	s, ok := q.lookup(name)
	if !ok {
		return nil
	}

	var c led.RGBColor
	if parts := strings.Split(s, ","); len(parts) == 3 {
		for i, part := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				q.fail(name, err)
				return nil
			}
			c[i] = uint8(min(max(v, 0), 255))
		}
		return &c
	}

	if err := c.UnmarshalText([]byte(s)); err != nil {
		q.fail(name, err)
		return nil
	}
	return &c
}
