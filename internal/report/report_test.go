package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/questionnaire"
	"github.com/TJerry3s/SCI-90test/internal/scoring"
)

func newEngine(t *testing.T) *scoring.Engine {
	t.Helper()
	engine, err := scoring.NewEngine(questionnaire.Default())
	require.NoError(t, err)
	return engine
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{1.0 / 3.0, "0.33"},
		{2.0 / 3.0, "0.67"},
		{2.345, "2.35"},
		{4, "4.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in).StringFixed(DisplayPlaces), "input %v", tt.in)
	}
}

func TestBuild_OrdersFactorsAndInterprets(t *testing.T) {
	engine := newEngine(t)

	values := make([]int, domain.ItemCount)
	hostility, ok := questionnaire.Default().Factor(questionnaire.Hostility)
	require.True(t, ok)
	for _, id := range hostility.ItemIDs {
		values[id-1] = 4
	}
	result := engine.ComputeResult(domain.NewAnswerVector(values))

	r := Build(engine, result)

	require.Len(t, r.Factors, 9)
	assert.Equal(t, questionnaire.Default().FactorNames()[0], r.Factors[0].Name)
	assert.Equal(t, 24, r.TotalScore)
	assert.True(t, decimal.RequireFromString("0.27").Equal(r.TotalAverage))
	assert.Equal(t, "Hostility", r.MainIssueDisplay)

	for _, row := range r.Factors {
		if row.Name == questionnaire.Hostility {
			assert.Equal(t, domain.FactorElevated, row.Level)
			assert.Equal(t, "warning", row.Tone)
			assert.True(t, decimal.NewFromInt(4).Equal(row.Average))
			assert.NotEmpty(t, row.Interpretation.Suggestions)
		} else {
			assert.Equal(t, domain.FactorNormal, row.Level, row.Name)
		}
	}
}

func TestBuild_NoMainIssue(t *testing.T) {
	engine := newEngine(t)
	result := engine.ComputeResult(domain.NewAnswerVector(make([]int, domain.ItemCount)))

	r := Build(engine, result)

	assert.Empty(t, r.MainIssueDisplay)
	assert.Equal(t, domain.LevelNormal, r.RiskLevel.Level)
}

func TestReport_Text(t *testing.T) {
	engine := newEngine(t)

	values := make([]int, domain.ItemCount)
	for i := range values {
		values[i] = 3
	}
	r := Build(engine, engine.ComputeResult(domain.NewAnswerVector(values)))

	text := r.Text()

	assert.Contains(t, text, "Risk level: Severe")
	assert.Contains(t, text, "Total score: 270 (average 3.00)")
	assert.Contains(t, text, "Main issue: Somatization")
	assert.Contains(t, text, "Paranoid Ideation")
	assert.Contains(t, text, "mental health professional")
	assert.Equal(t, 9, strings.Count(text, "(warning)"))
}

func TestReport_TextSkipsNormalFactors(t *testing.T) {
	engine := newEngine(t)
	r := Build(engine, engine.ComputeResult(domain.NewAnswerVector(make([]int, domain.ItemCount))))

	text := r.Text()

	assert.Contains(t, text, "Risk level: Normal")
	assert.NotContains(t, text, "(warning)")
	assert.NotContains(t, text, "(attention)")
	assert.NotContains(t, text, "Main issue")
	assert.NotContains(t, text, "mental health professional")
}

func TestReport_JSONAverages(t *testing.T) {
	engine := newEngine(t)
	values := make([]int, domain.ItemCount)
	values[0] = 1
	r := Build(engine, engine.ComputeResult(domain.NewAnswerVector(values)))

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0.01, decoded["total_average"])
	assert.Contains(t, string(data), `"total_average":0.01`)

	factors := decoded["factors"].([]interface{})
	first := factors[0].(map[string]interface{})
	assert.Equal(t, 0.08, first["average"])
}
