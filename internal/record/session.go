package record

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/spectrum-monitor/internal/storage"
	"github.com/roman-kulish/spectrum-monitor/internal/sweep"
)

// State is the recording session state.
type State int

const (
	StateIdle State = iota
	StateActive
	StateCompleted // duration limit reached
	StateCancelled // stopped explicitly or failed on a store error
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SessionStatus is a point-in-time view of a session for the
// recording-control consumer.
type SessionStatus struct {
	State          State
	ID             string
	Destination    string
	SamplesWritten int64
	Elapsed        time.Duration
	Err            error // set when the session was cancelled by a store failure
}

// Session is one bounded recording activity. It is created Active by the
// Recorder and moves to exactly one terminal state: Completed when its
// duration limit elapses, Cancelled on Stop or on a store failure. A
// terminal session closes its store exactly once and emits one terminal
// notification; no state is reused across sessions.
type Session struct {
	id    string
	limit time.Duration
	start time.Time

	store        storage.Store
	heat         *HeatmapBuffer
	logger       *slog.Logger
	requestPause func()
	now          func() time.Time

	mu      sync.Mutex
	state   State
	samples int64
	elapsed time.Duration
	err     error

	done     chan SessionStatus
	finished chan struct{}
}

func newSession(id string, limit time.Duration, start time.Time, store storage.Store, heat *HeatmapBuffer, logger *slog.Logger, requestPause func(), now func() time.Time) *Session {
	return &Session{
		id:           id,
		limit:        limit,
		start:        start,
		store:        store,
		heat:         heat,
		logger:       logger,
		requestPause: requestPause,
		now:          now,
		state:        StateActive,
		done:         make(chan SessionStatus, 1),
		finished:     make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a point-in-time view of the session.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Done delivers the terminal notification: exactly one SessionStatus once
// the session leaves Active. The presentation layer uses it to show a
// completion message and pause the live display.
func (s *Session) Done() <-chan SessionStatus {
	return s.done
}

// Stop cancels an Active session. Calling Stop on a terminal session is a
// no-op returning the current state; no further records are appended after
// the first call returns.
func (s *Session) Stop() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateActive {
		s.finishLocked(StateCancelled, nil)
	}
	return s.statusLocked()
}

// onSweep accepts one sweep from the acquisition loop. While Active it
// appends a timestamped record to the store (durably, before returning)
// and to the heatmap buffer; once the duration limit is reached the
// session completes and asks the acquisition loop to pause. Sweeps
// arriving after a terminal transition are ignored.
func (s *Session) onSweep(sw *sweep.Sweep, at time.Time) error {
	s.mu.Lock()

	if s.state != StateActive {
		s.mu.Unlock()
		return nil
	}

	rel := at.Sub(s.start)
	rec := &storage.Record{Elapsed: rel, WallTime: at, Sweep: sw}

	if err := s.store.Append(rec); err != nil {
		err = fmt.Errorf("appending record: %w", err)
		s.finishLocked(StateCancelled, err)
		s.mu.Unlock()
		return err
	}

	s.samples++
	s.elapsed = rel
	if err := s.heat.Append(rel, sw.Magnitudes); err != nil {
		// The store append already succeeded; a heatmap shape mismatch
		// is a contract bug worth surfacing, not a reason to cancel.
		s.logger.Error("heatmap append failed", slog.String("error", err.Error()))
	}

	var completed bool
	if s.limit > 0 && rel >= s.limit {
		s.finishLocked(StateCompleted, nil)
		completed = true
	}
	s.mu.Unlock()

	if completed && s.requestPause != nil {
		s.requestPause()
	}
	return nil
}

// finishLocked moves the session to a terminal state, closes the store
// handle and emits the terminal notification. Callers hold s.mu.
func (s *Session) finishLocked(state State, cause error) {
	s.state = state
	s.err = cause
	if s.elapsed == 0 {
		s.elapsed = s.now().Sub(s.start)
	}

	if err := s.store.Close(); err != nil && s.err == nil {
		s.err = fmt.Errorf("closing store: %w", err)
	}

	attrs := []any{
		slog.String("session", s.id),
		slog.String("state", state.String()),
		slog.String("destination", s.store.Path()),
		slog.String("samples", humanize.Comma(s.samples)),
		slog.Duration("elapsed", s.elapsed),
	}
	if stat, err := os.Stat(s.store.Path()); err == nil {
		attrs = append(attrs, slog.String("size", humanize.Bytes(uint64(stat.Size()))))
	}
	if s.err != nil {
		attrs = append(attrs, slog.String("error", s.err.Error()))
		s.logger.Error("recording session failed", attrs...)
	} else {
		s.logger.Info("recording session finished", attrs...)
	}

	s.done <- s.statusLocked()
	close(s.finished)
}

func (s *Session) statusLocked() SessionStatus {
	elapsed := s.elapsed
	if s.state == StateActive {
		elapsed = s.now().Sub(s.start)
	}
	return SessionStatus{
		State:          s.state,
		ID:             s.id,
		Destination:    s.store.Path(),
		SamplesWritten: s.samples,
		Elapsed:        elapsed,
		Err:            s.err,
	}
}
