// Package record implements bounded recording sessions on top of the
// acquisition loop: an explicit state machine per session, append-only
// persistence of timestamped sweeps and a windowed time/frequency heatmap
// refreshed on its own timer.
package record

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/spectrum-monitor/internal/storage"
	"github.com/roman-kulish/spectrum-monitor/internal/sweep"
)

// DefaultHeatmapRefresh is how often the heatmap snapshot offered to the
// consumer is rebuilt, independently of the poll rate.
const DefaultHeatmapRefresh = 20 * time.Second

// ErrAlreadyActive is returned by Start while another session is Active.
// At most one session is Active system-wide; a rejected Start does not
// alter the existing session.
var ErrAlreadyActive = errors.New("a recording session is already active")

// WithLogger sets the logger for the recorder and its sessions.
func WithLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithPauseRequest sets the callback a completing session uses to ask the
// acquisition loop to pause.
func WithPauseRequest(pause func()) func(*Recorder) {
	return func(r *Recorder) {
		r.pause = pause
	}
}

// WithHeatmapRefresh sets the heatmap snapshot period.
func WithHeatmapRefresh(every time.Duration) func(*Recorder) {
	return func(r *Recorder) {
		if every > 0 {
			r.refreshEvery = every
		}
	}
}

// WithHeatmapMaxRows sets the heatmap buffer retention limit.
func WithHeatmapMaxRows(rows int) func(*Recorder) {
	return func(r *Recorder) {
		r.maxRows = rows
	}
}

// Recorder owns the recording sessions. It enforces the single-Active
// invariant, feeds the active session from the acquisition loop (it is the
// loop's sink) and maintains the heatmap snapshot for the consumer.
type Recorder struct {
	cfg  storage.Config
	axis []float64

	logger       *slog.Logger
	pause        func()
	refreshEvery time.Duration
	maxRows      int
	now          func() time.Time

	mu      sync.Mutex
	session *Session

	snapshot atomic.Pointer[Heatmap]
	wg       sync.WaitGroup
}

// NewRecorder creates a Recorder writing sessions with the given storage
// configuration on the given frequency axis.
func NewRecorder(cfg storage.Config, axis []float64, options ...func(*Recorder)) (*Recorder, error) {
	if len(axis) == 0 {
		return nil, fmt.Errorf("empty frequency axis")
	}

	r := Recorder{
		cfg:          cfg,
		axis:         axis,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		refreshEvery: DefaultHeatmapRefresh,
		maxRows:      DefaultMaxRows,
		now:          time.Now,
	}
	for _, option := range options {
		option(&r)
	}

	return &r, nil
}

// Start begins a new recording session, opening its store and resetting
// the heatmap. A zero limit records until Stop. It fails with
// ErrAlreadyActive while a session is Active.
func (r *Recorder) Start(limit time.Duration) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil && r.session.State() == StateActive {
		return nil, ErrAlreadyActive
	}

	id := uuid.NewString()
	start := r.now()

	store, err := storage.Open(r.cfg, id, start, r.axis)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	heat, err := NewHeatmapBuffer(r.axis, r.maxRows)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sess := newSession(id, limit, start, store, heat, r.logger, r.pause, r.now)
	r.session = sess
	r.snapshot.Store(heat.Snapshot())

	r.wg.Add(1)
	go r.refreshLoop(sess)

	r.logger.Info("recording session started",
		slog.String("session", id),
		slog.String("destination", store.Path()),
		slog.Duration("limit", limit))

	return sess, nil
}

// Stop cancels the active session. With no session it reports Idle; on a
// terminal session it returns the current state unchanged.
func (r *Recorder) Stop() SessionStatus {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()

	if sess == nil {
		return SessionStatus{State: StateIdle}
	}
	return sess.Stop()
}

// Status reports the state of the current session, or Idle when none has
// been started yet.
func (r *Recorder) Status() SessionStatus {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()

	if sess == nil {
		return SessionStatus{State: StateIdle}
	}
	return sess.Status()
}

// HeatmapSnapshot returns the most recent heatmap snapshot, or nil before
// the first session. Snapshots are rebuilt on the refresh timer and once
// more when a session ends; reading never blocks an acquisition tick.
func (r *Recorder) HeatmapSnapshot() *Heatmap {
	return r.snapshot.Load()
}

// OnSweep implements the acquisition loop sink: it forwards every decoded
// sweep to the active session. With no active session it is a no-op.
func (r *Recorder) OnSweep(s *sweep.Sweep, at time.Time) error {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.onSweep(s, at)
}

// Close cancels any active session and waits for the refresh goroutine.
func (r *Recorder) Close() {
	r.Stop()
	r.wg.Wait()
}

func (r *Recorder) refreshLoop(sess *Session) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.snapshot.Store(sess.heat.Snapshot())
		case <-sess.finished:
			r.snapshot.Store(sess.heat.Snapshot())
			return
		}
	}
}
