// Package service implements the test-taking workflow around the scoring
// engine: token issue, device binding, progress, submission and the admin
// views over stored sessions.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/scoring"
	"github.com/TJerry3s/SCI-90test/internal/session"
)

const (
	// DefaultMaxTokenBatch caps how many tokens one admin request may issue.
	DefaultMaxTokenBatch = 500
	// statsScanLimit bounds the session scan used when no archive is configured.
	statsScanLimit = 100000
)

// ResultArchive is the append-only store of submitted results.
type ResultArchive interface {
	Create(ctx context.Context, token string, record *domain.ResultRecord) (uuid.UUID, error)
	CountByLevel(ctx context.Context) (map[domain.LevelName]int64, error)
}

// Stats summarizes stored sessions for the admin view.
type Stats struct {
	TotalSessions int64                      `json:"total_sessions"`
	ByStatus      map[session.Status]int64   `json:"by_status"`
	ByLevel       map[domain.LevelName]int64 `json:"by_level"`
}

// AssessmentService coordinates sessions, scoring, caching and archiving.
type AssessmentService struct {
	logger        *logrus.Logger
	engine        *scoring.Engine
	store         session.Store
	cache         domain.ResultCache
	archive       ResultArchive
	strict        bool
	maxTokenBatch int

	// writeMu serializes read-modify-write cycles on session rows.
	writeMu sync.Mutex
}

// Option is a functional option for AssessmentService.
type Option func(*AssessmentService)

// WithCache sets the result cache consulted before the session store.
func WithCache(cache domain.ResultCache) Option {
	return func(s *AssessmentService) {
		s.cache = cache
	}
}

// WithArchive sets the archive every submitted result is appended to.
func WithArchive(archive ResultArchive) Option {
	return func(s *AssessmentService) {
		s.archive = archive
	}
}

// WithStrictAnswers rejects incomplete or out-of-range answer vectors on
// submission instead of scoring the bad entries as zero.
func WithStrictAnswers(strict bool) Option {
	return func(s *AssessmentService) {
		s.strict = strict
	}
}

// WithMaxTokenBatch caps the number of tokens issued per call.
func WithMaxTokenBatch(n int) Option {
	return func(s *AssessmentService) {
		if n > 0 {
			s.maxTokenBatch = n
		}
	}
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	logger *logrus.Logger,
	engine *scoring.Engine,
	store session.Store,
	opts ...Option,
) *AssessmentService {
	s := &AssessmentService{
		logger:        logger,
		engine:        engine,
		store:         store,
		maxTokenBatch: DefaultMaxTokenBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the scoring engine.
func (s *AssessmentService) Engine() *scoring.Engine {
	return s.engine
}

// IssueTokens creates count fresh sessions sharing label.
func (s *AssessmentService) IssueTokens(ctx context.Context, count int, label string) ([]*session.Session, error) {
	if count < 1 || count > s.maxTokenBatch {
		return nil, domain.NewValidationError("count",
			fmt.Sprintf("must be between 1 and %d", s.maxTokenBatch), count)
	}

	issued := make([]*session.Session, 0, count)
	for i := 0; i < count; i++ {
		sess := &session.Session{
			Token:  uuid.NewString(),
			Label:  strings.TrimSpace(label),
			Status: session.StatusIssued,
		}
		if err := s.store.Create(ctx, sess); err != nil {
			s.logger.WithError(err).WithField("issued", len(issued)).Error("Failed to create session")
			return issued, fmt.Errorf("creating session: %w", err)
		}
		issued = append(issued, sess)
	}

	s.logger.WithFields(logrus.Fields{
		"count": count,
		"label": label,
	}).Info("Access tokens issued")

	return issued, nil
}

// Questions returns a page of questionnaire items and the total item count.
func (s *AssessmentService) Questions(offset, limit int) ([]domain.Item, int) {
	return s.engine.Scale().ItemsPage(offset, limit)
}

// Factors returns the factors in canonical order.
func (s *AssessmentService) Factors() []domain.Factor {
	return s.engine.Scale().Factors()
}

func checkDevice(sess *session.Session, deviceID string) error {
	if sess.DeviceID != "" && sess.DeviceID != deviceID {
		return fmt.Errorf("session %s: %w", sess.Token, domain.ErrDeviceMismatch)
	}
	return nil
}

func requireDevice(deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return domain.NewValidationError("device_id", "is required", deviceID)
	}
	return nil
}

// Session returns the session for token as seen from deviceID.
func (s *AssessmentService) Session(ctx context.Context, token, deviceID string) (*session.Session, error) {
	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkDevice(sess, deviceID); err != nil {
		return nil, err
	}
	return sess, nil
}

// BindDevice binds token to deviceID. The first bind wins; binding the same
// device again is a no-op and a different device is rejected.
func (s *AssessmentService) BindDevice(ctx context.Context, token, deviceID string) (*session.Session, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkDevice(sess, deviceID); err != nil {
		s.logger.WithField("token", token).Warn("Device bind rejected")
		return nil, err
	}
	if sess.DeviceID == deviceID {
		return sess, nil
	}

	sess.DeviceID = deviceID
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.logger.WithField("token", token).Info("Device bound to session")
	return sess, nil
}

// SaveProgress records partial answers. The last write wins.
func (s *AssessmentService) SaveProgress(ctx context.Context, token, deviceID string, answers domain.AnswerVector, currentIndex int) (*session.Session, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	itemCount := s.engine.Scale().ItemCount()
	if len(answers) > itemCount {
		return nil, domain.NewValidationError("answers",
			fmt.Sprintf("at most %d answers allowed", itemCount), len(answers))
	}
	if currentIndex < 0 || currentIndex > itemCount {
		return nil, domain.NewValidationError("current_index",
			fmt.Sprintf("must be between 0 and %d", itemCount), currentIndex)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkDevice(sess, deviceID); err != nil {
		return nil, err
	}
	if sess.Status == session.StatusCompleted {
		return nil, fmt.Errorf("session %s: %w", token, domain.ErrSessionCompleted)
	}

	sess.DeviceID = deviceID
	sess.Answers = answers
	sess.CurrentIndex = currentIndex
	sess.Status = session.StatusInProgress
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving progress: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"token":         token,
		"answered":      answers.Answered(),
		"current_index": currentIndex,
	}).Debug("Progress saved")

	return sess, nil
}

// Submit scores the session and stores the result. A nil answers vector
// submits the saved progress. Submitting a completed session returns the
// stored result unchanged.
func (s *AssessmentService) Submit(ctx context.Context, token, deviceID string, answers domain.AnswerVector) (*domain.ResultRecord, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkDevice(sess, deviceID); err != nil {
		return nil, err
	}
	if sess.Status == session.StatusCompleted && sess.Result != nil {
		s.logger.WithField("token", token).Debug("Submission repeated, returning stored result")
		return sess.Result, nil
	}

	if answers == nil {
		answers = sess.Answers
	}
	if s.strict {
		if err := scoring.ValidateAnswers(answers, s.engine.Scale().ItemCount()); err != nil {
			return nil, err
		}
	}

	result := s.engine.ComputeResult(answers)
	completedAt := result.CreatedAt

	sess.DeviceID = deviceID
	sess.Answers = answers
	sess.CurrentIndex = s.engine.Scale().ItemCount()
	sess.Status = session.StatusCompleted
	sess.Result = result
	sess.CompletedAt = &completedAt
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.WithError(err).WithField("token", token).Error("Failed to store result")
		return nil, fmt.Errorf("saving result: %w", err)
	}

	if s.archive != nil {
		if _, err := s.archive.Create(ctx, token, result); err != nil {
			s.logger.WithError(err).WithField("token", token).Warn("Failed to archive result")
		}
	}
	s.cacheResult(ctx, token, result)

	s.logger.WithFields(logrus.Fields{
		"token":        token,
		"total_score":  result.TotalScore,
		"risk_level":   result.RiskLevel.Level,
		"high_factors": result.RiskLevel.HighFactorCount,
	}).Info("Assessment submitted")

	return result, nil
}

func (s *AssessmentService) cacheResult(ctx context.Context, token string, result *domain.ResultRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, token, result); err != nil {
		s.logger.WithError(err).WithField("token", token).Warn("Failed to cache result")
	}
}

// Result returns the stored result for token as seen from deviceID. The
// session row is checked before the cache so deleted sessions and foreign
// devices never see a cached result.
func (s *AssessmentService) Result(ctx context.Context, token, deviceID string) (*domain.ResultRecord, error) {
	sess, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := checkDevice(sess, deviceID); err != nil {
		return nil, err
	}
	if sess.Result == nil {
		return nil, fmt.Errorf("result for session %s: %w", token, domain.ErrNotFound)
	}

	if s.cache != nil {
		result, ok, err := s.cache.Get(ctx, token)
		if err != nil {
			s.logger.WithError(err).WithField("token", token).Warn("Result cache lookup failed")
		} else if ok {
			return result, nil
		}
	}

	s.cacheResult(ctx, token, sess.Result)
	return sess.Result, nil
}

// Score computes a result without touching any session.
func (s *AssessmentService) Score(answers domain.AnswerVector) (*domain.ResultRecord, error) {
	if s.strict {
		if err := scoring.ValidateAnswers(answers, s.engine.Scale().ItemCount()); err != nil {
			return nil, err
		}
	}
	return s.engine.ComputeResult(answers), nil
}

// Interpret explains a factor average.
func (s *AssessmentService) Interpret(factorName string, average float64) domain.Interpretation {
	return s.engine.InterpretFactor(factorName, average)
}

// ListSessions returns a page of sessions and the total session count.
func (s *AssessmentService) ListSessions(ctx context.Context, limit, offset int) ([]*session.Session, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	sessions, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing sessions: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("counting sessions: %w", err)
	}
	return sessions, total, nil
}

// DeleteSession removes a session and its cached result.
func (s *AssessmentService) DeleteSession(ctx context.Context, token string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Delete(ctx, token); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, token); err != nil {
			s.logger.WithError(err).WithField("token", token).Warn("Failed to evict cached result")
		}
	}

	s.logger.WithField("token", token).Info("Session deleted")
	return nil
}

// Stats counts sessions by status and results by risk level. Level counts
// come from the archive when one is configured.
func (s *AssessmentService) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}
	byStatus, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting sessions by status: %w", err)
	}

	var byLevel map[domain.LevelName]int64
	if s.archive != nil {
		byLevel, err = s.archive.CountByLevel(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting results by level: %w", err)
		}
	} else {
		byLevel, err = s.countLevelsFromSessions(ctx)
		if err != nil {
			return nil, err
		}
	}

	return &Stats{
		TotalSessions: total,
		ByStatus:      byStatus,
		ByLevel:       byLevel,
	}, nil
}

func (s *AssessmentService) countLevelsFromSessions(ctx context.Context) (map[domain.LevelName]int64, error) {
	sessions, err := s.store.List(ctx, statsScanLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	counts := make(map[domain.LevelName]int64)
	for _, sess := range sessions {
		if sess.Result != nil {
			counts[sess.Result.RiskLevel.Level]++
		}
	}
	return counts, nil
}

// ExportSessions writes every session as JSON.
func (s *AssessmentService) ExportSessions(ctx context.Context, w io.Writer) error {
	start := time.Now()
	if err := s.store.ExportJSON(ctx, w); err != nil {
		return fmt.Errorf("exporting sessions: %w", err)
	}
	s.logger.WithField("duration", time.Since(start)).Info("Sessions exported")
	return nil
}

// ImportSessions loads sessions from a JSON export, skipping known tokens.
func (s *AssessmentService) ImportSessions(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	imported, skipped, err = s.store.ImportJSON(ctx, r)
	if err != nil {
		return imported, skipped, fmt.Errorf("importing sessions: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Sessions imported")
	return imported, skipped, nil
}

// IsClientError reports whether err is caused by the caller rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrDeviceMismatch) ||
		errors.Is(err, domain.ErrSessionCompleted) ||
		errors.Is(err, domain.ErrUnauthorized)
}
