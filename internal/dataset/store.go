// Package dataset optionally records feature vectors to a local SQLite
// database for offline model training: a WAL-mode single-writer pool with
// an idempotent migrate() against one append-only samples table.
package dataset

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aura-core/aura/internal/feature"
)

// Row is one recorded training sample: the feature vector extracted on
// a tick, alongside whatever label an operator or labeling tool later
// attaches (empty until labeled).
type Row struct {
	ID        int64
	Timestamp time.Time
	Vector    feature.Vector
	Label     string
}

// Store wraps a SQLite connection in WAL mode, opened only when dataset
// recording is enabled in configuration (§5 dataset.enabled).
type Store struct {
	db *sql.DB
}

// Open creates or opens the dataset database at path, enabling WAL mode
// and a single-writer connection pool (SQLite's own concurrency model).
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("dataset: creating %s: %w", filepath.Dir(path), err)
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dataset: ping: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dataset: migrate: %w", err)
	}
	return s, nil
}

// Close shuts down the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS samples (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at  INTEGER NOT NULL,
		feature_json TEXT NOT NULL,
		label        TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_samples_recorded_at ON samples(recorded_at)`)
	return err
}

// Record appends one sample with an empty label.
func (s *Store) Record(v feature.Vector, at time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("dataset: encoding feature vector: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO samples (recorded_at, feature_json, label) VALUES (?, ?, '')`,
		at.Unix(), string(data),
	)
	return err
}

// Label sets the label for a previously recorded sample.
func (s *Store) Label(id int64, label string) error {
	result, err := s.db.Exec(`UPDATE samples SET label = ? WHERE id = ?`, label, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("dataset: no sample with id %d", id)
	}
	return nil
}

// Recent returns the most recently recorded samples, newest first,
// capped at limit rows.
func (s *Store) Recent(limit int) ([]Row, error) {
	rows, err := s.db.Query(
		`SELECT id, recorded_at, feature_json, label FROM samples ORDER BY recorded_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count reports the total number of recorded samples.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n)
	return n, err
}

func scanRow(rows *sql.Rows) (Row, error) {
	var r Row
	var recordedAt int64
	var featureJSON string
	if err := rows.Scan(&r.ID, &recordedAt, &featureJSON, &r.Label); err != nil {
		return Row{}, err
	}
	r.Timestamp = time.Unix(recordedAt, 0)
	if err := json.Unmarshal([]byte(featureJSON), &r.Vector); err != nil {
		return Row{}, fmt.Errorf("dataset: decoding feature vector for sample %d: %w", r.ID, err)
	}
	return r, nil
}
