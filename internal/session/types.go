// Package session stores test sessions: the access token, the device the
// session is bound to, answers recorded so far and the final result.
// Writes are single-row and last write wins.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TJerry3s/SCI-90test/internal/domain"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIssued     Status = "issued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Session is one administration of the questionnaire behind an access token.
type Session struct {
	ID           int64                `json:"id,omitempty"`
	Token        string               `json:"token"`
	Label        string               `json:"label,omitempty"`
	DeviceID     string               `json:"device_id,omitempty"`
	Answers      domain.AnswerVector  `json:"answers"`
	CurrentIndex int                  `json:"current_index"`
	Status       Status               `json:"status"`
	Result       *domain.ResultRecord `json:"result,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// Store defines the interface for session storage operations.
type Store interface {
	// Create inserts a new session. The token must not exist yet.
	Create(ctx context.Context, s *Session) error

	// Get returns the session for a token or an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, token string) (*Session, error)

	// Save inserts or overwrites the session row for s.Token.
	Save(ctx context.Context, s *Session) error

	// List returns sessions, newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Session, error)

	// Count returns the total number of sessions.
	Count(ctx context.Context) (int64, error)

	// CountByStatus returns the number of sessions per status.
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// Delete removes a session by token.
	Delete(ctx context.Context, token string) error

	// ExportJSON writes all sessions to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads sessions from reader, skipping tokens that already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string     `json:"version"`
	ExportedAt time.Time  `json:"exported_at"`
	Count      int        `json:"count"`
	Sessions   []*Session `json:"sessions"`
}

// maxExportLimit is the maximum number of sessions exported at once.
const maxExportLimit = 1000000

func encodeAnswers(answers domain.AnswerVector) (string, error) {
	if answers == nil {
		answers = domain.AnswerVector{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("encoding answers: %w", err)
	}
	return string(data), nil
}

func decodeAnswers(data []byte) (domain.AnswerVector, error) {
	if len(data) == 0 {
		return domain.AnswerVector{}, nil
	}
	var answers domain.AnswerVector
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("decoding answers: %w", err)
	}
	return answers, nil
}

// encodeResult returns nil for a missing result so the column stays NULL.
func encodeResult(result *domain.ResultRecord) (interface{}, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}

func decodeResult(data []byte) (*domain.ResultRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result domain.ResultRecord
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return &result, nil
}

func writeExport(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Sessions:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func readImport(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w: %w", domain.ErrInvalidInput, err)
	}

	// Entries are checked up front so a bad file imports nothing.
	for i, s := range export.Sessions {
		if s == nil || strings.TrimSpace(s.Token) == "" {
			return 0, 0, fmt.Errorf("session entry %d has no token: %w", i, domain.ErrInvalidInput)
		}
	}

	for _, s := range export.Sessions {
		if _, err := store.Get(ctx, s.Token); err == nil {
			skipped++
			continue
		} else if !isNotFound(err) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if err := store.Create(ctx, s); err != nil {
			return imported, skipped, fmt.Errorf("failed to import session %s: %w", s.Token, err)
		}
		imported++
	}

	return imported, skipped, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
