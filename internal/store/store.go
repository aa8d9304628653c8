// Package store persists tracks, listens, lyrics and the derived mood
// records in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/moodsync/mood-tools/internal/migration"
)

// dayFormat is the canonical key for (user, day) records.
const dayFormat = "2006-01-02"

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(migration.Create); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DayKey formats a time as the canonical (user, day) key, in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayFormat)
}

// ParseDay parses a canonical day key back into a UTC midnight time.
func ParseDay(key string) (time.Time, error) {
	t, err := time.Parse(dayFormat, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day %q: %w", key, err)
	}
	return t, nil
}
