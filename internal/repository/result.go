// Package repository archives completed result records in PostgreSQL.
// The archive is append-only; session rows keep the latest result while
// every submission lands here.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/TJerry3s/SCI-90test/internal/domain"
)

// ArchivedResult is one stored result record together with its session token.
type ArchivedResult struct {
	ID     uuid.UUID            `json:"id"`
	Token  string               `json:"token"`
	Record *domain.ResultRecord `json:"record"`
}

// ResultRepository handles result archive persistence
type ResultRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *pgxpool.Pool, logger *logrus.Logger) *ResultRepository {
	return &ResultRepository{
		db:  db,
		log: logger,
	}
}

const resultColumns = `id, token, total_score, total_average, positive_items, risk_level,
	main_issue, high_factor_count, recommend_professional, factors, created_at`

// Create archives a result record for a token and returns the new archive id.
func (r *ResultRepository) Create(ctx context.Context, token string, record *domain.ResultRecord) (uuid.UUID, error) {
	if record == nil {
		return uuid.Nil, fmt.Errorf("archiving result: %w", domain.ErrInvalidInput)
	}

	factors, err := json.Marshal(record.Factors)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding factors: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	id := uuid.New()
	query := `
		INSERT INTO result_archive (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		id,
		token,
		record.TotalScore,
		record.TotalAverage,
		record.PositiveItems,
		string(record.RiskLevel.Level),
		record.RiskLevel.MainIssue,
		record.RiskLevel.HighFactorCount,
		record.RiskLevel.RecommendProfessional,
		factors,
		createdAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"token": token,
			"error": err,
		}).Error("Failed to archive result")
		return uuid.Nil, fmt.Errorf("archiving result: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"archive_id":  id,
		"token":       token,
		"total_score": record.TotalScore,
		"risk_level":  record.RiskLevel.Level,
	}).Info("Result archived")

	return id, nil
}

// GetByID retrieves an archived result by its id
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*ArchivedResult, error) {
	row := r.db.QueryRow(ctx, `SELECT `+resultColumns+` FROM result_archive WHERE id = $1`, id)

	result, err := scanArchived(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("archived result not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"archive_id": id,
			"error":      err,
		}).Error("Failed to get archived result")
		return nil, fmt.Errorf("getting archived result: %w", err)
	}
	return result, nil
}

// ListByToken returns every archived result for a token, newest first.
func (r *ResultRepository) ListByToken(ctx context.Context, token string) ([]*ArchivedResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+resultColumns+` FROM result_archive WHERE token = $1 ORDER BY created_at DESC`, token)
	if err != nil {
		return nil, fmt.Errorf("listing archived results: %w", err)
	}
	defer rows.Close()

	var results []*ArchivedResult
	for rows.Next() {
		result, err := scanArchived(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning archived result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// CountByLevel returns the number of archived results per risk level.
func (r *ResultRepository) CountByLevel(ctx context.Context) (map[domain.LevelName]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT risk_level, COUNT(*) FROM result_archive GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("counting results by level: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.LevelName]int64)
	for rows.Next() {
		var level string
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scanning level count: %w", err)
		}
		counts[domain.LevelName(level)] = n
	}
	return counts, rows.Err()
}

func scanArchived(row pgx.Row) (*ArchivedResult, error) {
	var (
		result  ArchivedResult
		record  domain.ResultRecord
		level   string
		factors []byte
	)

	err := row.Scan(
		&result.ID,
		&result.Token,
		&record.TotalScore,
		&record.TotalAverage,
		&record.PositiveItems,
		&level,
		&record.RiskLevel.MainIssue,
		&record.RiskLevel.HighFactorCount,
		&record.RiskLevel.RecommendProfessional,
		&factors,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.RiskLevel.Level = domain.LevelName(level)
	if err := json.Unmarshal(factors, &record.Factors); err != nil {
		return nil, fmt.Errorf("decoding factors: %w", err)
	}
	result.Record = &record
	return &result, nil
}
