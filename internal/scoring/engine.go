// Package scoring implements the SCI-90 scoring and risk classification
// engine. It is a pure computation over the static questionnaire tables:
// no I/O, no shared mutable state, safe for concurrent use.
package scoring

import (
	"fmt"
	"time"

	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/questionnaire"
)

// Engine scores answer vectors against one questionnaire scale.
type Engine struct {
	scale     *questionnaire.Scale
	factors   []domain.Factor
	itemCount int
	now       func() time.Time
}

// EngineOption is a functional option for Engine.
type EngineOption func(*Engine)

// WithClock overrides the clock used to stamp result records.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine validates the scale and builds an engine over it. A defective
// scale is a configuration error and should abort startup.
func NewEngine(scale *questionnaire.Scale, opts ...EngineOption) (*Engine, error) {
	if scale == nil {
		return nil, fmt.Errorf("scale is required")
	}
	if err := scale.Validate(); err != nil {
		return nil, fmt.Errorf("validating scale: %w", err)
	}

	e := &Engine{
		scale:     scale,
		factors:   scale.Factors(),
		itemCount: scale.ItemCount(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Scale returns the scale the engine scores against.
func (e *Engine) Scale() *questionnaire.Scale {
	return e.scale
}

// ComputeResult scores an answer vector. Missing, out-of-range and surplus
// entries never fail the computation; they contribute zero.
func (e *Engine) ComputeResult(answers domain.AnswerVector) *domain.ResultRecord {
	total := 0
	positive := 0
	for i := 0; i < e.itemCount; i++ {
		v := answers.Value(i)
		total += v
		if v > PositiveItemThreshold {
			positive++
		}
	}

	ordered := e.FactorResults(answers)
	factors := make(map[string]domain.FactorResult, len(ordered))
	for _, fr := range ordered {
		factors[fr.Name] = fr
	}

	return &domain.ResultRecord{
		TotalScore:    total,
		TotalAverage:  float64(total) / float64(e.itemCount),
		PositiveItems: positive,
		Factors:       factors,
		RiskLevel:     ClassifyRisk(total, ordered),
		CreatedAt:     e.now().UTC(),
	}
}

// FactorResults aggregates the answers per factor in canonical order.
func (e *Engine) FactorResults(answers domain.AnswerVector) []domain.FactorResult {
	results := make([]domain.FactorResult, len(e.factors))
	for i, f := range e.factors {
		score := 0
		for _, id := range f.ItemIDs {
			score += answers.Value(id - 1)
		}
		results[i] = domain.FactorResult{
			Name:      f.Name,
			Score:     score,
			Average:   float64(score) / float64(len(f.ItemIDs)),
			ItemCount: len(f.ItemIDs),
		}
	}
	return results
}

// InterpretFactor explains a factor average. It never fails: unknown factor
// names get a generic interpretation.
func (e *Engine) InterpretFactor(factorName string, average float64) domain.Interpretation {
	return Interpret(e.scale, factorName, average)
}

// OrderedFactors returns a result's factor scores in the engine's canonical order.
func (e *Engine) OrderedFactors(result *domain.ResultRecord) []domain.FactorResult {
	out := make([]domain.FactorResult, 0, len(e.factors))
	for _, f := range e.factors {
		if fr, ok := result.Factors[f.Name]; ok {
			out = append(out, fr)
		}
	}
	return out
}

// ValidateAnswers is the strict input check used when lenient scoring is
// disabled: exactly one present answer per item, each within 0..4.
func ValidateAnswers(answers domain.AnswerVector, itemCount int) error {
	if len(answers) != itemCount {
		return domain.NewValidationError("answers",
			fmt.Sprintf("expected %d answers, got %d", itemCount, len(answers)), len(answers))
	}
	for i, a := range answers {
		field := fmt.Sprintf("answers[%d]", i)
		if a == nil {
			return domain.NewValidationError(field, "is missing", nil)
		}
		if *a < domain.MinAnswer || *a > domain.MaxAnswer {
			return domain.NewValidationError(field,
				fmt.Sprintf("must be between %d and %d", domain.MinAnswer, domain.MaxAnswer), *a)
		}
	}
	return nil
}

var _ domain.Scorer = (*Engine)(nil)
