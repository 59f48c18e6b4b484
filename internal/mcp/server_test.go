package mcp

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TJerry3s/SCI-90test/internal/cache"
	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/questionnaire"
	"github.com/TJerry3s/SCI-90test/internal/report"
	"github.com/TJerry3s/SCI-90test/internal/scoring"
	"github.com/TJerry3s/SCI-90test/internal/service"
	"github.com/TJerry3s/SCI-90test/internal/session"
)

func createTestServer(t *testing.T) (*Server, *service.AssessmentService, string) {
	t.Helper()

	tmpDir := t.TempDir()
	store, err := session.NewSQLiteStore(filepath.Join(tmpDir, "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine, err := scoring.NewEngine(questionnaire.Default())
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	svc := service.NewAssessmentService(logger, engine, store,
		service.WithCache(cache.NewMemoryCache(10, 0)))

	exportDir := filepath.Join(tmpDir, "exports")
	srv, err := NewServer(svc, WithLogger(logger), WithExportDir(exportDir))
	require.NoError(t, err)

	return srv, svc, exportDir
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func answers(value int) []*int {
	out := make([]*int, domain.ItemCount)
	for i := range out {
		v := value
		out[i] = &v
	}
	return out
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestHandleComputeResult(t *testing.T) {
	srv, _, _ := createTestServer(t)
	ctx := context.Background()

	result, out, err := srv.handleComputeResult(ctx, nil, ComputeResultParams{Answers: answers(2)})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	rep, ok := out.(*report.Report)
	require.True(t, ok)
	assert.Equal(t, 180, rep.TotalScore)
	assert.Equal(t, domain.LevelMild, rep.RiskLevel.Level)
	assert.Contains(t, textOf(t, result), "Total score: 180 (average 2.00)")

	result, out, err = srv.handleComputeResult(ctx, nil, ComputeResultParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Nil(t, out)
}

func TestHandleInterpretFactor(t *testing.T) {
	srv, _, _ := createTestServer(t)
	ctx := context.Background()

	result, out, err := srv.handleInterpretFactor(ctx, nil, InterpretFactorParams{Factor: "depression", Average: 2.5})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	interp, ok := out.(domain.Interpretation)
	require.True(t, ok)
	assert.Equal(t, domain.FactorModerate, interp.Level)
	assert.Contains(t, textOf(t, result), "Depression (moderate, average 2.50)")

	result, out, err = srv.handleInterpretFactor(ctx, nil, InterpretFactorParams{Factor: "sleep", Average: 3.5})
	require.NoError(t, err)
	assert.False(t, result.IsError, "unknown factors get the generic interpretation")
	generic := out.(domain.Interpretation)
	assert.Equal(t, "sleep", generic.DisplayName)
	assert.Equal(t, domain.FactorElevated, generic.Level)
	assert.NotEmpty(t, generic.Description)
	assert.Contains(t, textOf(t, result), "sleep (elevated, average 3.50)")

	tests := []struct {
		name   string
		params InterpretFactorParams
	}{
		{"missing factor", InterpretFactorParams{Average: 1}},
		{"average too high", InterpretFactorParams{Factor: "anxiety", Average: 4.5}},
		{"average NaN", InterpretFactorParams{Factor: "anxiety", Average: math.NaN()}},
		{"average infinite", InterpretFactorParams{Factor: "anxiety", Average: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := srv.handleInterpretFactor(ctx, nil, tt.params)
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

func TestHandleListFactorsAndQuestions(t *testing.T) {
	srv, _, _ := createTestServer(t)
	ctx := context.Background()

	result, out, err := srv.handleListFactors(ctx, nil, struct{}{})
	require.NoError(t, err)
	factors, ok := out.([]domain.Factor)
	require.True(t, ok)
	assert.Len(t, factors, 9)
	assert.Contains(t, textOf(t, result), "interpersonal_sensitivity")

	_, out, err = srv.handleListQuestions(ctx, nil, ListQuestionsParams{Offset: 10, Limit: 5})
	require.NoError(t, err)
	page := out.(map[string]interface{})
	items := page["items"].([]domain.Item)
	require.Len(t, items, 5)
	assert.Equal(t, 11, items[0].ID)
	assert.Equal(t, domain.ItemCount, page["total"])
}

func TestHandleIssueTokensAndGetResult(t *testing.T) {
	srv, svc, _ := createTestServer(t)
	ctx := context.Background()

	result, out, err := srv.handleIssueTokens(ctx, nil, IssueTokensParams{Count: 2, Label: "pilot"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	tokens := out.(map[string]interface{})["tokens"].([]string)
	require.Len(t, tokens, 2)

	result, _, err = srv.handleIssueTokens(ctx, nil, IssueTokensParams{Count: 0})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, _, err = srv.handleGetResult(ctx, nil, GetResultParams{Token: tokens[0]})
	require.NoError(t, err)
	assert.True(t, result.IsError, "no result before submission")

	_, err = svc.Submit(ctx, tokens[0], "desk-1", domain.NewAnswerVector(make([]int, domain.ItemCount)))
	require.NoError(t, err)

	result, _, err = srv.handleGetResult(ctx, nil, GetResultParams{Token: tokens[0], DeviceID: "desk-2"})
	require.NoError(t, err)
	assert.True(t, result.IsError, "bound to another device")

	result, out, err = srv.handleGetResult(ctx, nil, GetResultParams{Token: tokens[0], DeviceID: "desk-1"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, domain.LevelNormal, out.(*report.Report).RiskLevel.Level)

	result, _, err = srv.handleGetResult(ctx, nil, GetResultParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleExportSessions(t *testing.T) {
	srv, svc, exportDir := createTestServer(t)
	ctx := context.Background()

	issued, err := svc.IssueTokens(ctx, 1, "")
	require.NoError(t, err)

	result, out, err := srv.handleExportSessions(ctx, nil, struct{}{})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	exported := out.(ExportResult)
	assert.Equal(t, exportDir, filepath.Dir(exported.Path))

	data, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), issued[0].Token)
}
