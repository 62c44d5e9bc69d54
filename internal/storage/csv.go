package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// CSVStore persists one session as a comma-separated file: a header row
// carrying the frequency axis, then one row per record in arrival order.
// This is the primary, interchange-friendly backend.
type CSVStore struct {
	path   string
	points int

	f *os.File
	w *csv.Writer

	closeOnce sync.Once
	closeErr  error
}

// OpenCSV creates the session file and writes the header row. The file
// must not already exist.
func OpenCSV(path string, axis []float64) (*CSVStore, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating session file: %w", err)
	}

	s := &CSVStore{
		path:   path,
		points: len(axis),
		f:      f,
		w:      csv.NewWriter(f),
	}

	if err := s.writeRow(Header(axis)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}

	return s, nil
}

// Append writes one record and flushes it to disk before returning.
func (s *CSVStore) Append(rec *Record) error {
	if rec.Sweep.Points() != s.points {
		return fmt.Errorf("record has %d points, session axis has %d", rec.Sweep.Points(), s.points)
	}
	if err := s.writeRow(EncodeRow(rec)); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return nil
}

// Path returns the session file location.
func (s *CSVStore) Path() string {
	return s.path
}

// Close flushes pending output and releases the file.
func (s *CSVStore) Close() error {
	s.closeOnce.Do(func() {
		s.w.Flush()
		err := s.w.Error()
		if cErr := s.f.Close(); cErr != nil && err == nil {
			err = cErr
		}
		s.closeErr = err
	})
	return s.closeErr
}

func (s *CSVStore) writeRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	return s.f.Sync()
}

// ReadCSV loads a recorded CSV session back into memory: the frequency
// axis from the header and every record in file order. Used by the
// heatmap renderer and by round-trip tests.
func ReadCSV(path string) ([]float64, []*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // validated against the header below

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	axis, err := ParseHeader(header)
	if err != nil {
		return nil, nil, err
	}

	var records []*Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading row %d: %w", len(records)+2, err)
		}

		rec, err := DecodeRow(axis, row)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding row %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}

	return axis, records, nil
}
