// Package acquire runs the periodic sweep acquisition loop: it polls a
// sweep source at a configurable interval, tolerates transient device
// errors, publishes the most recent sweep for the live view and feeds an
// optional sink (the recorder) synchronously on every successful tick.
package acquire

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/spectrum-monitor/internal/sweep"
)

// DefaultFailureThreshold defines the number of consecutive transient
// failures tolerated before the loop pauses itself and reports the device
// as unresponsive.
const DefaultFailureThreshold = 5

// Status describes the loop state as seen by the live-view consumer.
type Status int

const (
	StatusPaused Status = iota
	StatusRunning
	StatusUnresponsive // paused after too many consecutive failures
)

func (s Status) String() string {
	switch s {
	case StatusPaused:
		return "paused"
	case StatusRunning:
		return "running"
	case StatusUnresponsive:
		return "unresponsive"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// SweepSource produces one sweep per call. In production this is the
// device analyzer; tests substitute a fake.
type SweepSource interface {
	FetchSweep() (*sweep.Sweep, error)
}

// Sink consumes every successfully acquired sweep, synchronously within
// the producing tick. A sink error is logged but never stops the loop and
// never counts toward the failure threshold.
type Sink interface {
	OnSweep(s *sweep.Sweep, at time.Time) error
}

// WithSink attaches a sweep sink to the loop.
func WithSink(sink Sink) func(*Loop) {
	return func(l *Loop) {
		l.sink = sink
	}
}

// WithLogger sets the logger for the loop.
func WithLogger(logger *slog.Logger) func(*Loop) {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithFailureThreshold sets the number of consecutive transient failures
// after which the loop pauses and reports the device as unresponsive.
func WithFailureThreshold(threshold int) func(*Loop) {
	return func(l *Loop) {
		if threshold > 0 {
			l.threshold = threshold
		}
	}
}

// Loop is the acquisition loop. It starts paused; Start and Pause are
// idempotent. One goroutine drives the ticks; state transitions requested
// from other goroutines take effect before the next tick begins.
type Loop struct {
	source SweepSource
	sink   Sink
	logger *slog.Logger

	interval  atomic.Int64 // tick period in nanoseconds
	threshold int

	mu       sync.Mutex
	status   Status
	failures int

	errorCount atomic.Uint64
	latest     atomic.Pointer[sweep.Sweep]

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Loop polling the source at the given interval and starts
// its scheduling goroutine. The loop is created paused.
func New(source SweepSource, interval time.Duration, options ...func(*Loop)) (*Loop, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid poll interval %s", interval)
	}

	l := Loop{
		source:    source,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		threshold: DefaultFailureThreshold,
		status:    StatusPaused,
		done:      make(chan struct{}),
	}
	l.interval.Store(int64(interval))

	for _, option := range options {
		option(&l)
	}

	l.wg.Add(1)
	go l.run()

	return &l, nil
}

// Start transitions the loop to running. Calling Start on a running loop
// is a no-op. Starting clears an unresponsive condition and its failure
// count.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status == StatusRunning {
		return
	}
	l.status = StatusRunning
	l.failures = 0
}

// Pause transitions the loop to paused. Calling Pause on a paused loop is
// a no-op. At most one in-flight tick may still complete after Pause
// returns; no tick begins afterwards.
func (l *Loop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status == StatusRunning {
		l.status = StatusPaused
	}
}

// Status returns the current loop status.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Latest returns the most recently published sweep. It reports false
// before the first successful tick. The value is retained across failures
// and pauses, including an unresponsive escalation.
func (l *Loop) Latest() (*sweep.Sweep, bool) {
	s := l.latest.Load()
	return s, s != nil
}

// SetInterval changes the tick period. The change applies from the next
// scheduled tick; the loop is not restarted.
func (l *Loop) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", interval)
	}
	l.interval.Store(int64(interval))
	return nil
}

// Interval returns the current tick period.
func (l *Loop) Interval() time.Duration {
	return time.Duration(l.interval.Load())
}

// ErrorCount returns the total number of tick-level transient failures
// observed since the loop was created.
func (l *Loop) ErrorCount() uint64 {
	return l.errorCount.Load()
}

// Close stops the scheduling goroutine and waits for an in-flight tick to
// finish. The loop cannot be reused after Close.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}

func (l *Loop) run() {
	defer l.wg.Done()

	timer := time.NewTimer(l.Interval())
	defer timer.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-timer.C:
			l.tick()
			timer.Reset(l.Interval())
		}
	}
}

func (l *Loop) tick() {
	l.mu.Lock()
	running := l.status == StatusRunning
	l.mu.Unlock()
	if !running {
		return
	}

	s, err := l.source.FetchSweep()
	if err != nil {
		l.errorCount.Add(1)

		l.mu.Lock()
		l.failures++
		escalate := l.failures >= l.threshold && l.status == StatusRunning
		if escalate {
			l.status = StatusUnresponsive
		}
		failures := l.failures
		l.mu.Unlock()

		if escalate {
			l.logger.Error("device unresponsive, pausing acquisition",
				slog.Int("consecutiveFailures", failures),
				slog.String("error", err.Error()))
			return
		}

		l.logger.Warn("sweep acquisition failed, skipping tick",
			slog.Int("consecutiveFailures", failures),
			slog.String("error", err.Error()))
		return
	}

	l.mu.Lock()
	l.failures = 0
	l.mu.Unlock()

	l.latest.Store(s)

	if l.sink != nil {
		if err := l.sink.OnSweep(s, time.Now()); err != nil {
			l.logger.Error("sweep sink failed", slog.String("error", err.Error()))
		}
	}
}
