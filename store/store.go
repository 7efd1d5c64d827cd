// Package store persists the winning genome and the journey of each home
// location in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when a home has no stored genome or journey.
var ErrNotFound = errors.New("not found")

// Memory is the path that opens a private in-memory database.
const Memory = ":memory:"

// Record is one saved genome.
type Record struct {
	HomeID     string
	Data       []byte
	Generation int
	SavedAt    time.Time
}

// Journey is the saved route of a home: the destination cell id of each leg
// in travel order.
type Journey struct {
	HomeID  string
	Legs    []string
	SavedAt time.Time
}

// GenomeStore keeps the current genome per home plus a history of saves,
// and the journey each home travels.
type GenomeStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path. Memory opens an in-memory
// database that lives as long as the store.
func Open(ctx context.Context, path string) (*GenomeStore, error) {
	dsn := Memory
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &GenomeStore{db: db, now: time.Now}, nil
}

// Load returns the current genome of homeID.
func (s *GenomeStore) Load(ctx context.Context, homeID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := Record{HomeID: homeID}
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, generation, saved_at FROM genomes WHERE home_id = ?`, homeID,
	).Scan(&rec.Data, &rec.Generation, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("genome of home %s: %w", homeID, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load genome: %w", err)
	}
	rec.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return Record{}, fmt.Errorf("failed to parse saved_at: %w", err)
	}
	return rec, nil
}

// Save makes data the current genome of homeID and appends it to the
// history.
func (s *GenomeStore) Save(ctx context.Context, homeID string, generation int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	savedAt := s.now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO genomes (home_id, data, generation, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(home_id) DO UPDATE SET
			data = excluded.data,
			generation = excluded.generation,
			saved_at = excluded.saved_at`,
		homeID, data, generation, savedAt,
	); err != nil {
		return fmt.Errorf("failed to save genome: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO genome_history (home_id, data, generation, saved_at) VALUES (?, ?, ?, ?)`,
		homeID, data, generation, savedAt,
	); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return tx.Commit()
}

// History returns up to limit saved genomes of homeID, newest first. A
// non-positive limit returns all of them.
func (s *GenomeStore) History(ctx context.Context, homeID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT data, generation, saved_at FROM genome_history
		WHERE home_id = ? ORDER BY id DESC LIMIT ?`, homeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec := Record{HomeID: homeID}
		var savedAt string
		if err := rows.Scan(&rec.Data, &rec.Generation, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if rec.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, fmt.Errorf("failed to parse saved_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveJourney makes legs the journey of homeID.
func (s *GenomeStore) SaveJourney(ctx context.Context, homeID string, legs []string) error {
	if len(legs) == 0 {
		return errors.New("journey has no legs")
	}
	encoded, err := json.Marshal(legs)
	if err != nil {
		return fmt.Errorf("failed to encode journey: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO journeys (home_id, legs, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(home_id) DO UPDATE SET
			legs = excluded.legs,
			saved_at = excluded.saved_at`,
		homeID, string(encoded), s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to save journey: %w", err)
	}
	return nil
}

// LoadJourney returns the journey of homeID.
func (s *GenomeStore) LoadJourney(ctx context.Context, homeID string) (Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var legs, savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT legs, saved_at FROM journeys WHERE home_id = ?`, homeID,
	).Scan(&legs, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Journey{}, fmt.Errorf("journey of home %s: %w", homeID, ErrNotFound)
	}
	if err != nil {
		return Journey{}, fmt.Errorf("failed to load journey: %w", err)
	}

	j := Journey{HomeID: homeID}
	if err := json.Unmarshal([]byte(legs), &j.Legs); err != nil {
		return Journey{}, fmt.Errorf("failed to decode journey: %w", err)
	}
	if j.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return Journey{}, fmt.Errorf("failed to parse saved_at: %w", err)
	}
	return j, nil
}

// Close closes the database.
func (s *GenomeStore) Close() error {
	return s.db.Close()
}
