package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultRetention is how long termination records are kept.
const DefaultRetention = 7 * 24 * time.Hour

// Termination is one signal sent from the UI and its outcome.
type Termination struct {
	Timestamp time.Time
	PID       int
	Label     string
	Signal    string
	Error     string // empty on success
}

// Journal persists termination requests in a SQLite file. Writes are queued
// and flushed by a background writer so the UI never waits on disk.
type Journal struct {
	db        *sql.DB
	logger    *zap.Logger
	retention time.Duration
	writeChan chan Termination
	closeChan chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// DefaultPath returns ~/.procmon/journal.db.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".procmon", "journal.db"), nil
}

// NewJournal opens (or creates) the journal at path.
func NewJournal(path string, retention time.Duration, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps the writer and readers on one sqlite handle
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	j := &Journal{
		db:        db,
		logger:    logger,
		retention: retention,
		writeChan: make(chan Termination, 256),
		closeChan: make(chan struct{}),
	}

	j.wg.Add(2)
	go j.writer()
	go j.cleanup()

	return j, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS terminations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		pid INTEGER NOT NULL,
		label TEXT,
		signal TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_terminations_time
	ON terminations(timestamp);
	`

	_, err := db.Exec(schema)
	return err
}

// Write queues a record. It never blocks; when the queue is full the record
// is dropped and logged.
func (j *Journal) Write(t Termination) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	select {
	case j.writeChan <- t:
	default:
		j.logger.Warn("journal queue full, dropping record", zap.Int("pid", t.PID))
	}
}

// writer runs in background and batch writes to database
func (j *Journal) writer() {
	defer j.wg.Done()

	buffer := make([]Termination, 0, 16)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case t := <-j.writeChan:
			buffer = append(buffer, t)
			if len(buffer) >= 16 {
				j.batchWrite(buffer)
				buffer = buffer[:0]
			}

		case <-ticker.C:
			if len(buffer) > 0 {
				j.batchWrite(buffer)
				buffer = buffer[:0]
			}

		case <-j.closeChan:
			// drain whatever is still queued, then final flush
			for len(j.writeChan) > 0 {
				buffer = append(buffer, <-j.writeChan)
			}
			if len(buffer) > 0 {
				j.batchWrite(buffer)
			}
			return
		}
	}
}

func (j *Journal) batchWrite(entries []Termination) {
	tx, err := j.db.Begin()
	if err != nil {
		j.logger.Error("journal begin", zap.Error(err))
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO terminations (timestamp, pid, label, signal, error)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		j.logger.Error("journal prepare", zap.Error(err))
		return
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Timestamp.UnixNano(), e.PID, e.Label, e.Signal, e.Error); err != nil {
			j.logger.Warn("journal insert", zap.Int("pid", e.PID), zap.Error(err))
		}
	}

	if err := tx.Commit(); err != nil {
		j.logger.Error("journal commit", zap.Error(err))
	}
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Termination, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT timestamp, pid, label, signal, error
		FROM terminations
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Termination
	for rows.Next() {
		var (
			ts            int64
			t             Termination
			label, errStr sql.NullString
		)
		if err := rows.Scan(&ts, &t.PID, &label, &t.Signal, &errStr); err != nil {
			return out, err
		}
		t.Timestamp = time.Unix(0, ts)
		t.Label = label.String
		t.Error = errStr.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// cleanup removes old records periodically
func (j *Journal) cleanup() {
	defer j.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	j.Prune(time.Now().Add(-j.retention))
	for {
		select {
		case <-ticker.C:
			j.Prune(time.Now().Add(-j.retention))
		case <-j.closeChan:
			return
		}
	}
}

// Prune deletes records older than cutoff in batches to keep lock times short.
// It returns the number of rows removed.
func (j *Journal) Prune(cutoff time.Time) int64 {
	const batchSize = 500
	var total int64
	for {
		// modernc sqlite is built without SQLITE_ENABLE_UPDATE_DELETE_LIMIT
		result, err := j.db.Exec(`
			DELETE FROM terminations WHERE id IN (
				SELECT id FROM terminations WHERE timestamp < ? LIMIT ?
			)`,
			cutoff.UnixNano(),
			batchSize,
		)
		if err != nil {
			j.logger.Warn("journal prune", zap.Error(err))
			return total
		}

		n, err := result.RowsAffected()
		if err != nil || n == 0 {
			return total
		}
		total += n
	}
}

// Close flushes pending writes and closes the database.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		close(j.closeChan)
		j.wg.Wait()
		err = j.db.Close()
	})
	return err
}
