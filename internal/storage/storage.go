// Package storage provides append-only persistence for recorded sweep
// sessions. A store is opened per session, appends records durably in
// arrival order, never rewrites or reorders rows, and never overwrites an
// existing file.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultDataDirectory is where session files are written when no data
	// directory is configured.
	DefaultDataDirectory = "data"

	BackendCSV    Backend = "csv"
	BackendSQLite Backend = "sqlite"
)

// Backend selects the on-disk format of a session store.
type Backend string

// Config holds storage settings.
type Config struct {
	DataDirectory string  `yaml:"dataDirectory"`
	Backend       Backend `yaml:"backend"`
}

// Store is an append-only sink for the records of one recording session.
// Append is durable on return: a record is either fully persisted or not
// considered written. Implementations are not safe for concurrent use;
// the owning session serializes appends.
type Store interface {
	// Append persists one record. The persisted file is always a prefix
	// of the true sample sequence, even after an abrupt failure.
	Append(rec *Record) error

	// Path returns the location of the session file.
	Path() string

	// Close flushes and releases the session file. Safe to call more
	// than once.
	Close() error
}

// Open creates the session store for a new recording session. The base
// directory must already exist; a missing or unwritable destination is an
// error. File names embed the session start time and ID, and an existing
// file is never overwritten: on collision the name is disambiguated with
// a nanosecond suffix.
func Open(cfg Config, sessionID string, start time.Time, axis []float64) (Store, error) {
	dir := cfg.DataDirectory
	if dir == "" {
		dir = DefaultDataDirectory
	}

	stat, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("storage directory %q: %w", dir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("storage destination %q is not a directory", dir)
	}

	backend := cfg.Backend
	if backend == "" {
		backend = BackendCSV
	}

	var ext string
	switch backend {
	case BackendCSV:
		ext = "csv"
	case BackendSQLite:
		ext = "sqlite"
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}

	base := fmt.Sprintf("sweep_%s_%s", start.UTC().Format("20060102_150405"), shortID(sessionID))
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", base, ext))
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", base, start.UnixNano(), ext))
	}

	switch backend {
	case BackendSQLite:
		return OpenSQLite(path, sessionID, start, axis)
	default:
		return OpenCSV(path, axis)
	}
}

func shortID(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}
