package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/spectrum-monitor/internal/sweep"
)

// Record is one timestamped sweep as persisted by a session store: the
// sweep itself, the elapsed time since the recording started and the
// absolute capture time. Records are immutable and appended in arrival
// order.
type Record struct {
	Elapsed  time.Duration // Time since session start (t=0 at start)
	WallTime time.Time     // Absolute capture time
	Sweep    *sweep.Sweep
}

// Header builds the row-format header: the elapsed and wall-time columns
// followed by the session frequency axis.
func Header(axis []float64) []string {
	row := make([]string, 0, len(axis)+2)
	row = append(row, "elapsed", "time")
	for _, f := range axis {
		row = append(row, formatFloat(f))
	}
	return row
}

// ParseHeader parses a header row back into the frequency axis.
func ParseHeader(row []string) ([]float64, error) {
	if len(row) < 3 || row[0] != "elapsed" || row[1] != "time" {
		return nil, fmt.Errorf("malformed header row")
	}

	axis := make([]float64, len(row)-2)
	for i, col := range row[2:] {
		f, err := strconv.ParseFloat(col, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing header frequency %q: %w", col, err)
		}
		axis[i] = f
	}
	return axis, nil
}

// EncodeRow serializes a record to its row form. EncodeRow and DecodeRow
// are exact inverses: elapsed time is written as integral seconds and
// nanoseconds, the wall time as RFC 3339 with nanoseconds in UTC, and
// magnitudes with the shortest exact float representation.
func EncodeRow(rec *Record) []string {
	row := make([]string, 0, len(rec.Sweep.Magnitudes)+2)
	row = append(row,
		formatElapsed(rec.Elapsed),
		rec.WallTime.UTC().Format(time.RFC3339Nano),
	)
	for _, m := range rec.Sweep.Magnitudes {
		row = append(row, formatFloat(m))
	}
	return row
}

// DecodeRow parses a row back into a Record on the given frequency axis.
func DecodeRow(axis []float64, row []string) (*Record, error) {
	if len(row) != len(axis)+2 {
		return nil, fmt.Errorf("row has %d columns, expected %d", len(row), len(axis)+2)
	}

	elapsed, err := parseElapsed(row[0])
	if err != nil {
		return nil, fmt.Errorf("parsing elapsed time %q: %w", row[0], err)
	}

	wall, err := time.Parse(time.RFC3339Nano, row[1])
	if err != nil {
		return nil, fmt.Errorf("parsing wall time %q: %w", row[1], err)
	}

	mags := make([]float64, len(axis))
	for i, col := range row[2:] {
		m, err := strconv.ParseFloat(col, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing magnitude %q: %w", col, err)
		}
		mags[i] = m
	}

	s, err := sweep.New(axis, mags)
	if err != nil {
		return nil, err
	}

	return &Record{Elapsed: elapsed, WallTime: wall, Sweep: s}, nil
}

// formatElapsed renders a duration as decimal seconds with full nanosecond
// precision, e.g. "12.000000500". The integer encoding keeps the row codec
// lossless.
func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%d.%09d", d/time.Second, d%time.Second)
}

func parseElapsed(s string) (time.Duration, error) {
	sec, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 9 {
		return 0, fmt.Errorf("expected seconds.nanoseconds form")
	}

	secs, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return 0, err
	}
	nanos, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	if secs < 0 || nanos < 0 {
		return 0, fmt.Errorf("negative elapsed time")
	}

	return time.Duration(secs)*time.Second + time.Duration(nanos), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}

func splitFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		values[i] = v
	}
	return values, nil
}
