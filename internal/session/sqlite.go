package session

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/TJerry3s/SCI-90test/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite session store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps writes serialized and lets ":memory:" work.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const sessionColumns = `id, token, label, device_id, answers, current_index, status,
	result, created_at, updated_at, completed_at`

// scanSession scans a row into a Session struct.
func scanSession(s scanner) (*Session, error) {
	sess := &Session{}
	var status string
	var answers, result []byte
	var completedAt sql.NullTime

	err := s.Scan(
		&sess.ID, &sess.Token, &sess.Label, &sess.DeviceID, &answers,
		&sess.CurrentIndex, &status, &result,
		&sess.CreatedAt, &sess.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.Status = Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	if sess.Answers, err = decodeAnswers(answers); err != nil {
		return nil, err
	}
	if sess.Result, err = decodeResult(result); err != nil {
		return nil, err
	}
	return sess, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL DEFAULT '',
		device_id TEXT NOT NULL DEFAULT '',
		answers TEXT NOT NULL DEFAULT '[]',
		current_index INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'issued',
		result TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

func sessionArgs(s *Session) (answers string, result interface{}, err error) {
	if answers, err = encodeAnswers(s.Answers); err != nil {
		return "", nil, err
	}
	if result, err = encodeResult(s.Result); err != nil {
		return "", nil, err
	}
	return answers, result, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// Create inserts a new session.
func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	answers, result, err := sessionArgs(sess)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	if sess.Status == "" {
		sess.Status = StatusIssued
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			token, label, device_id, answers, current_index, status,
			result, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sess.Token, sess.Label, sess.DeviceID, answers, sess.CurrentIndex,
		string(sess.Status), result, sess.CreatedAt, sess.UpdatedAt, nullableTime(sess.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	sess.ID = id
	return nil
}

// Get retrieves a session by token.
func (s *SQLiteStore) Get(ctx context.Context, token string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE token = ?", token)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", token, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return sess, nil
}

// Save stores the session, overwriting any existing row for the same token.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	answers, result, err := sessionArgs(sess)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			token, label, device_id, answers, current_index, status,
			result, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			label = excluded.label,
			device_id = excluded.device_id,
			answers = excluded.answers,
			current_index = excluded.current_index,
			status = excluded.status,
			result = excluded.result,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at
	`,
		sess.Token, sess.Label, sess.DeviceID, answers, sess.CurrentIndex,
		string(sess.Status), result, sess.CreatedAt, sess.UpdatedAt, nullableTime(sess.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return s.db.QueryRowContext(ctx,
		"SELECT id FROM sessions WHERE token = ?", sess.Token).Scan(&sess.ID)
}

// List returns sessions with pagination, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

// Count returns the total number of sessions.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// CountByStatus returns the number of sessions per status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM sessions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Delete removes a session by token.
func (s *SQLiteStore) Delete(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", token, domain.ErrNotFound)
	}
	return nil
}

// ExportJSON exports all sessions to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return writeExport(ctx, s, writer)
}

// ImportJSON imports sessions from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return readImport(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
