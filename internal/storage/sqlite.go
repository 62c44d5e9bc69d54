package storage

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/spectrum-monitor/internal/sweep"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (session_id,
                      start_time,
                      frequencies)
VALUES (?, ?, ?)`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     elapsed_ns,
                     wall_time,
                     magnitudes)
VALUES (?, ?, ?, ?)`
)

// SQLiteStore persists one session into a SQLite database: one sessions
// row with the frequency axis, one samples row per record. Each append is
// a single implicit transaction and is durable on return.
type SQLiteStore struct {
	path      string
	sessionID string
	points    int

	db     *sql.DB
	insert *sql.Stmt

	closeOnce sync.Once
	closeErr  error
}

// OpenSQLite creates the session database, initializes the schema and
// registers the session row. The file must not already exist.
func OpenSQLite(path, sessionID string, start time.Time, axis []float64) (store *SQLiteStore, err error) {
	if _, err = os.Stat(path); err == nil {
		return nil, fmt.Errorf("session file %q already exists: %w", path, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking session file: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path))
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	if _, err = db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if _, err = db.Exec(insertSessionSQL, sessionID, start.UTC().Format(time.RFC3339Nano), joinFloats(axis)); err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	insert, err := db.Prepare(insertSampleSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}

	return &SQLiteStore{
		path:      path,
		sessionID: sessionID,
		points:    len(axis),
		db:        db,
		insert:    insert,
	}, nil
}

// Append persists one record as a single committed insert.
func (s *SQLiteStore) Append(rec *Record) error {
	if rec.Sweep.Points() != s.points {
		return fmt.Errorf("record has %d points, session axis has %d", rec.Sweep.Points(), s.points)
	}

	_, err := s.insert.Exec(
		s.sessionID,
		int64(rec.Elapsed),
		rec.WallTime.UTC().Format(time.RFC3339Nano),
		joinFloats(rec.Sweep.Magnitudes),
	)
	if err != nil {
		return fmt.Errorf("inserting sample: %w", err)
	}
	return nil
}

// Path returns the session database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the prepared statement and the database connection.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		err := s.insert.Close()
		if cErr := s.db.Close(); cErr != nil && err == nil {
			err = cErr
		}
		s.closeErr = err
	})
	return s.closeErr
}

const (
	selectSessionSQL = `
SELECT frequencies
FROM sessions
ORDER BY start_time
LIMIT 1`

	selectSamplesSQL = `
SELECT elapsed_ns,
       wall_time,
       magnitudes
FROM samples
ORDER BY id`
)

// ReadSQLite loads a recorded SQLite session back into memory: the
// frequency axis from the sessions row and every sample in insertion
// order. Used by the heatmap renderer and by round-trip tests.
func ReadSQLite(path string) ([]float64, []*Record, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("checking session file: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, nil, fmt.Errorf("opening session database: %w", err)
	}
	defer db.Close()

	var axisCol string
	if err = db.QueryRow(selectSessionSQL).Scan(&axisCol); err != nil {
		return nil, nil, fmt.Errorf("reading session row: %w", err)
	}
	axis, err := splitFloats(axisCol)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing frequency axis: %w", err)
	}

	rows, err := db.Query(selectSamplesSQL)
	if err != nil {
		return nil, nil, fmt.Errorf("reading samples: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var elapsedNS int64
		var wallCol, magsCol string
		if err = rows.Scan(&elapsedNS, &wallCol, &magsCol); err != nil {
			return nil, nil, fmt.Errorf("scanning sample %d: %w", len(records)+1, err)
		}

		wall, err := time.Parse(time.RFC3339Nano, wallCol)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing wall time %q: %w", wallCol, err)
		}
		mags, err := splitFloats(magsCol)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing magnitudes of sample %d: %w", len(records)+1, err)
		}

		s, err := sweep.New(axis, mags)
		if err != nil {
			return nil, nil, fmt.Errorf("sample %d: %w", len(records)+1, err)
		}
		records = append(records, &Record{
			Elapsed:  time.Duration(elapsedNS),
			WallTime: wall,
			Sweep:    s,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading samples: %w", err)
	}

	return axis, records, nil
}
