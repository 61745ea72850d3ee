package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/Mirrorsync/internal/domain"
)

// Manager persists the history of mirror passes
type Manager struct {
	db *sql.DB
}

// PassRecord represents a single mirror pass
type PassRecord struct {
	ID           int64
	Source       string
	Destination  string
	StartTime    time.Time
	EndTime      time.Time
	Status       domain.PassStatus
	DirsCreated  int
	FilesCopied  int
	FilesUpdated int
	FilesDeleted int
	DirsDeleted  int
	Skipped      int
	Errors       int
	BytesCopied  int64
	Error        string
}

// Duration returns how long the pass took
func (r PassRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// NewRecord builds a history record from a finished pass.
// passErr is the root failure returned by Synchronize, if any.
func NewRecord(result *domain.PassResult, passErr error) PassRecord {
	record := PassRecord{
		Source:       result.Source,
		Destination:  result.Destination,
		StartTime:    result.StartTime,
		EndTime:      result.EndTime,
		Status:       result.Status(passErr),
		DirsCreated:  result.Stats.DirsCreated,
		FilesCopied:  result.Stats.FilesCopied,
		FilesUpdated: result.Stats.FilesUpdated,
		FilesDeleted: result.Stats.FilesDeleted,
		DirsDeleted:  result.Stats.DirsDeleted,
		Skipped:      result.Stats.Skipped,
		Errors:       len(result.Errors),
		BytesCopied:  result.Stats.BytesCopied,
	}

	switch {
	case passErr != nil:
		record.Error = passErr.Error()
	case result.Err() != nil:
		record.Error = result.Err().Error()
	}

	return record
}

// Open opens (or creates) the history database at path
func Open(path string) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}

	// Initialize schema
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

// initSchema creates the database schema
func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		dirs_created INTEGER DEFAULT 0,
		files_copied INTEGER DEFAULT 0,
		files_updated INTEGER DEFAULT 0,
		files_deleted INTEGER DEFAULT 0,
		dirs_deleted INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		errors INTEGER DEFAULT 0,
		bytes_copied INTEGER DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_passes_destination_time ON passes(destination, start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_passes_status ON passes(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

const selectColumns = `
	SELECT id, source, destination, start_time, end_time, status,
		dirs_created, files_copied, files_updated, files_deleted, dirs_deleted,
		skipped, errors, bytes_copied, error
	FROM passes
`

// SaveRecord records a pass and returns its ID
func (m *Manager) SaveRecord(record PassRecord) (int64, error) {
	if !record.Status.IsValid() {
		return 0, fmt.Errorf("invalid status: %q (must be 'success', 'partial', or 'failed')", record.Status)
	}
	if record.Destination == "" {
		return 0, fmt.Errorf("record destination cannot be empty")
	}

	query := `
		INSERT INTO passes (source, destination, start_time, end_time, status,
			dirs_created, files_copied, files_updated, files_deleted, dirs_deleted,
			skipped, errors, bytes_copied, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := m.db.Exec(query,
		record.Source,
		record.Destination,
		record.StartTime.UTC(),
		record.EndTime.UTC(),
		string(record.Status),
		record.DirsCreated,
		record.FilesCopied,
		record.FilesUpdated,
		record.FilesDeleted,
		record.DirsDeleted,
		record.Skipped,
		record.Errors,
		record.BytesCopied,
		record.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save pass record: %w", err)
	}

	return res.LastInsertId()
}

// GetHistory retrieves the most recent passes, newest first.
// An empty destination returns passes for every destination.
func (m *Manager) GetHistory(destination string, limit int) ([]PassRecord, error) {
	// Validate limit
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	var (
		rows *sql.Rows
		err  error
	)
	if destination == "" {
		rows, err = m.db.Query(selectColumns+"ORDER BY start_time DESC, id DESC LIMIT ?", limit)
	} else {
		rows, err = m.db.Query(selectColumns+"WHERE destination = ? ORDER BY start_time DESC, id DESC LIMIT ?", destination, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []PassRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// GetLastSuccess retrieves the last successful pass for a destination.
// It returns nil without error when none exists.
func (m *Manager) GetLastSuccess(destination string) (*PassRecord, error) {
	row := m.db.QueryRow(selectColumns+"WHERE destination = ? AND status = ? ORDER BY start_time DESC, id DESC LIMIT 1",
		destination, string(domain.PassSuccess))

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	return &record, nil
}

// Prune deletes all but the newest keep records and returns how many were removed
func (m *Manager) Prune(keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative, got %d", keep)
	}

	res, err := m.db.Exec(`
		DELETE FROM passes WHERE id NOT IN (
			SELECT id FROM passes ORDER BY start_time DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (PassRecord, error) {
	var (
		record PassRecord
		status string
	)
	err := s.Scan(
		&record.ID,
		&record.Source,
		&record.Destination,
		&record.StartTime,
		&record.EndTime,
		&status,
		&record.DirsCreated,
		&record.FilesCopied,
		&record.FilesUpdated,
		&record.FilesDeleted,
		&record.DirsDeleted,
		&record.Skipped,
		&record.Errors,
		&record.BytesCopied,
		&record.Error,
	)
	record.Status = domain.PassStatus(status)
	return record, err
}
