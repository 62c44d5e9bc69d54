package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStore_RoundTrip(t *testing.T) {
	axis := sessionAxis(t)
	start := time.Date(2026, 8, 23, 10, 30, 0, 123456789, time.UTC)
	path := filepath.Join(t.TempDir(), "session.sqlite")

	store, err := OpenSQLite(path, "test-session", start, axis)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}

	records := sessionRecords(t, axis, start, 3)
	for i, rec := range records {
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}

	gotAxis, gotRecords, err := ReadSQLite(path)
	if err != nil {
		t.Fatalf("ReadSQLite failed: %v", err)
	}

	for i, f := range axis {
		if gotAxis[i] != f {
			t.Errorf("Axis %d: expected %f, got %f", i, f, gotAxis[i])
		}
	}
	if len(gotRecords) != len(records) {
		t.Fatalf("Expected %d records, got %d", len(records), len(gotRecords))
	}
	for i, rec := range records {
		got := gotRecords[i]
		if got.Elapsed != rec.Elapsed {
			t.Errorf("Record %d elapsed: expected %d, got %d", i, rec.Elapsed, got.Elapsed)
		}
		if !got.WallTime.Equal(rec.WallTime) {
			t.Errorf("Record %d wall time: expected %s, got %s", i, rec.WallTime, got.WallTime)
		}
		for j, m := range rec.Sweep.Magnitudes {
			if got.Sweep.Magnitudes[j] != m {
				t.Errorf("Record %d magnitude %d: expected %v, got %v", i, j, m, got.Sweep.Magnitudes[j])
			}
		}
	}
}

func TestSQLiteStore_NeverOverwrites(t *testing.T) {
	axis := sessionAxis(t)
	start := time.Now()
	path := filepath.Join(t.TempDir(), "session.sqlite")

	store, err := OpenSQLite(path, "test-session", start, axis)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err = store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err = OpenSQLite(path, "another", start, axis); !errors.Is(err, os.ErrExist) {
		t.Fatalf("Expected os.ErrExist for existing file, got %v", err)
	}
}

func TestReadSQLite_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sqlite")
	if _, _, err := ReadSQLite(path); err == nil {
		t.Error("Expected error for missing session file")
	}
}
