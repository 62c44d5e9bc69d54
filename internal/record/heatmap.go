package record

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxRows bounds how many sweep rows the heatmap buffer retains
	// for one session. Long sessions evict their oldest rows rather than
	// growing without bound.
	DefaultMaxRows = 4096
)

// Heatmap is an immutable snapshot of the heatmap buffer: a time-ordered
// stack of magnitude rows sharing one frequency axis.
type Heatmap struct {
	Frequencies []float64       // Shared frequency axis in Hz
	Elapsed     []time.Duration // Capture time of each row, relative to session start
	Rows        [][]float64     // Magnitude rows in capture order, oldest first
	Dropped     int             // Rows evicted by the retention policy before this snapshot
}

// HeatmapBuffer accumulates magnitude rows for the lifetime of one active
// session. When the buffer reaches its capacity, the oldest rows are
// evicted in blocks so steady-state appends stay cheap.
type HeatmapBuffer struct {
	freqs      []float64
	maxRows    int
	evictCount int

	mu      sync.Mutex
	elapsed []time.Duration
	rows    [][]float64
	dropped int
}

// NewHeatmapBuffer creates a buffer for the given frequency axis retaining
// at most maxRows rows (DefaultMaxRows if maxRows is zero or negative).
func NewHeatmapBuffer(freqs []float64, maxRows int) (*HeatmapBuffer, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("empty frequency axis")
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	return &HeatmapBuffer{
		freqs:      freqs,
		maxRows:    maxRows,
		evictCount: max(1, maxRows/8),
	}, nil
}

// Append adds one magnitude row captured at the given elapsed time.
func (b *HeatmapBuffer) Append(elapsed time.Duration, magnitudes []float64) error {
	if len(magnitudes) != len(b.freqs) {
		return fmt.Errorf("row has %d points, axis has %d", len(magnitudes), len(b.freqs))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.rows) >= b.maxRows {
		n := b.evictCount
		b.rows = append(b.rows[:0], b.rows[n:]...)
		b.elapsed = append(b.elapsed[:0], b.elapsed[n:]...)
		b.dropped += n
	}

	b.rows = append(b.rows, magnitudes)
	b.elapsed = append(b.elapsed, elapsed)
	return nil
}

// Size returns the number of rows currently retained.
func (b *HeatmapBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// Snapshot returns a copy of the buffer safe to hand to a consumer. Row
// slices are shared read-only with the sweeps that produced them.
func (b *HeatmapBuffer) Snapshot() *Heatmap {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := Heatmap{
		Frequencies: b.freqs,
		Elapsed:     make([]time.Duration, len(b.elapsed)),
		Rows:        make([][]float64, len(b.rows)),
		Dropped:     b.dropped,
	}
	copy(h.Elapsed, b.elapsed)
	copy(h.Rows, b.rows)
	return &h
}
