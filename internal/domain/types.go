package domain

import (
	"errors"
	"math"
	"time"
)

// Answer scale bounds. Answers outside this range score as zero.
const (
	MinAnswer = 0
	MaxAnswer = 4
	ItemCount = 90
)

// ValidAverage reports whether avg is a finite factor average on the
// answer scale. NaN fails every comparison, so it is checked first.
func ValidAverage(avg float64) bool {
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return false
	}
	return avg >= MinAnswer && avg <= MaxAnswer
}

// Item is a single questionnaire question.
type Item struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Factor string `json:"factor"`
}

// Factor is a symptom dimension together with the items that belong to it.
type Factor struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	ItemIDs     []int  `json:"item_ids"`
}

// AnswerVector holds one answer per item. Index i corresponds to item i+1.
// A nil entry means the item was not answered.
type AnswerVector []*int

// NewAnswerVector builds an AnswerVector from plain integers.
func NewAnswerVector(values []int) AnswerVector {
	answers := make(AnswerVector, len(values))
	for i := range values {
		v := values[i]
		answers[i] = &v
	}
	return answers
}

// Value returns the score for the item at index i, substituting 0 for
// missing or out-of-range entries.
func (a AnswerVector) Value(i int) int {
	if i < 0 || i >= len(a) || a[i] == nil {
		return 0
	}
	v := *a[i]
	if v < MinAnswer || v > MaxAnswer {
		return 0
	}
	return v
}

// Answered counts the entries that are present.
func (a AnswerVector) Answered() int {
	n := 0
	for _, v := range a {
		if v != nil {
			n++
		}
	}
	return n
}

// FactorResult is the aggregated score of one factor.
type FactorResult struct {
	Name      string  `json:"name"`
	Score     int     `json:"score"`
	Average   float64 `json:"average"`
	ItemCount int     `json:"item_count"`
}

// LevelName identifies one of the four risk tiers. The bottom tier,
// "None/Normal", is named "Normal"; clients display it and stats are
// keyed by it.
type LevelName string

const (
	LevelSevere   LevelName = "Severe"
	LevelModerate LevelName = "Moderate"
	LevelMild     LevelName = "Mild"
	LevelNormal   LevelName = "Normal"
)

// String returns the string representation of the level
func (l LevelName) String() string {
	return string(l)
}

// RiskLevel is the overall classification of a result.
type RiskLevel struct {
	Level                 LevelName `json:"level"`
	Color                 string    `json:"color"`
	Description           string    `json:"description"`
	Advice                string    `json:"advice"`
	MainIssue             *string   `json:"main_issue"`
	HighFactorCount       int       `json:"high_factor_count"`
	RecommendProfessional bool      `json:"recommend_professional"`
}

// ResultRecord is the full output of scoring one completed test.
type ResultRecord struct {
	TotalScore    int                     `json:"total_score"`
	TotalAverage  float64                 `json:"total_average"`
	PositiveItems int                     `json:"positive_items"`
	Factors       map[string]FactorResult `json:"factors"`
	RiskLevel     RiskLevel               `json:"risk_level"`
	CreatedAt     time.Time               `json:"created_at"`
}

// FactorLevel is the qualitative level of a single factor average.
type FactorLevel string

const (
	FactorElevated FactorLevel = "elevated"
	FactorModerate FactorLevel = "moderate"
	FactorNormal   FactorLevel = "normal"
)

// Interpretation explains one factor score to the test taker.
type Interpretation struct {
	Factor           string      `json:"factor"`
	DisplayName      string      `json:"display_name"`
	Description      string      `json:"description"`
	HighScoreMeaning string      `json:"high_score_meaning"`
	Suggestions      []string    `json:"suggestions"`
	Average          float64     `json:"average"`
	Level            FactorLevel `json:"level"`
	Tone             string      `json:"tone"`
}

// Common errors
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDeviceMismatch   = errors.New("session is bound to another device")
	ErrSessionCompleted = errors.New("session already completed")
	ErrUnauthorized     = errors.New("unauthorized")
)
