package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TJerry3s/SCI-90test/internal/cache"
	"github.com/TJerry3s/SCI-90test/internal/config"
	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/middleware"
	"github.com/TJerry3s/SCI-90test/internal/questionnaire"
	"github.com/TJerry3s/SCI-90test/internal/scoring"
	"github.com/TJerry3s/SCI-90test/internal/service"
	"github.com/TJerry3s/SCI-90test/internal/session"
)

const testAdminPassword = "letmein"

func testConfig() *domain.Config {
	return &domain.Config{
		Environment: "test",
		Server:      domain.ServerConfig{Host: "127.0.0.1", Port: 8080, AllowOrigins: []string{"*"}},
		Storage:     domain.StorageConfig{Driver: "sqlite"},
		Admin:       domain.AdminConfig{Password: testAdminPassword, MaxTokenBatch: 10},
		Logging:     domain.LoggingConfig{Level: "error"},
	}
}

type testEnv struct {
	server  *Server
	handler http.Handler
	svc     *service.AssessmentService
}

func newTestEnv(t *testing.T, mutate func(*domain.Config), opts ...ServerOption) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	store, err := session.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine, err := scoring.NewEngine(questionnaire.Default())
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	svc := service.NewAssessmentService(logger, engine, store,
		service.WithCache(cache.NewMemoryCache(100, 0)),
		service.WithMaxTokenBatch(cfg.Admin.MaxTokenBatch),
	)

	server, err := NewServer(config.FromConfig(cfg), svc, logger, opts...)
	require.NoError(t, err)

	return &testEnv{server: server, handler: server.Handler(), svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func uniform(value int) []int {
	answers := make([]int, domain.ItemCount)
	for i := range answers {
		answers[i] = value
	}
	return answers
}

func admin() map[string]string {
	return map[string]string{middleware.AdminPasswordHeader: testAdminPassword}
}

func device(id string) map[string]string {
	return map[string]string{middleware.DeviceIDHeader: id}
}

func (e *testEnv) issueToken(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/admin/tokens", map[string]interface{}{"count": 1, "label": "clinic"}, admin())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Tokens []string `json:"tokens"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Tokens, 1)
	return body.Tokens[0]
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, WithHealthCheck("sessions", func(context.Context) error { return nil }))

	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.Equal(t, map[string]interface{}{"sessions": "ok"}, body["components"])

	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, nil,
		WithHealthCheck("sessions", func(context.Context) error { return nil }),
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)

	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "degraded", body["status"])
	components := body["components"].(map[string]interface{})
	assert.Equal(t, "ok", components["sessions"])
	assert.Equal(t, "connection refused", components["redis"])
}

func TestQuestions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/questions", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var all struct {
		Items []domain.Item `json:"items"`
		Total int           `json:"total"`
		Scale struct {
			Min int `json:"min"`
			Max int `json:"max"`
		} `json:"scale"`
	}
	decode(t, rec, &all)
	assert.Len(t, all.Items, domain.ItemCount)
	assert.Equal(t, domain.ItemCount, all.Total)
	assert.Equal(t, 0, all.Scale.Min)
	assert.Equal(t, 4, all.Scale.Max)
	assert.Equal(t, 1, all.Items[0].ID)

	rec = env.do(t, http.MethodGet, "/api/v1/questions?offset=85&limit=10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []domain.Item `json:"items"`
		Total int           `json:"total"`
	}
	decode(t, rec, &page)
	require.Len(t, page.Items, 5)
	assert.Equal(t, 86, page.Items[0].ID)
	assert.Equal(t, domain.ItemCount, page.Total)

	rec = env.do(t, http.MethodGet, "/api/v1/questions?limit=ten", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFactors(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/factors", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Factors []domain.Factor `json:"factors"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Factors, 9)
	assert.Equal(t, questionnaire.Somatization, body.Factors[0].Name)
	assert.Equal(t, questionnaire.Psychoticism, body.Factors[8].Name)
}

func TestInterpretation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/factors/anxiety/interpretation?average=3.2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var interp domain.Interpretation
	decode(t, rec, &interp)
	assert.Equal(t, "anxiety", interp.Factor)
	assert.Equal(t, "Anxiety", interp.DisplayName)
	assert.Equal(t, domain.FactorElevated, interp.Level)
	assert.Equal(t, "warning", interp.Tone)

	tests := []struct {
		name  string
		query string
	}{
		{"missing", ""},
		{"not a number", "?average=high"},
		{"negative", "?average=-0.5"},
		{"above scale", "?average=4.1"},
		{"NaN", "?average=NaN"},
		{"infinity", "?average=Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/factors/anxiety/interpretation"+tt.query, nil, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, rec.Body.String())
		})
	}
}

func TestScore(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/score", map[string]interface{}{"answers": uniform(4)}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Result domain.ResultRecord `json:"result"`
		Report struct {
			TotalAverage     float64 `json:"total_average"`
			MainIssueDisplay string  `json:"main_issue_display"`
			Factors          []struct {
				Name string `json:"name"`
			} `json:"factors"`
		} `json:"report"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 360, body.Result.TotalScore)
	assert.Equal(t, 90, body.Result.PositiveItems)
	assert.Equal(t, domain.LevelSevere, body.Result.RiskLevel.Level)
	assert.True(t, body.Result.RiskLevel.RecommendProfessional)
	assert.Equal(t, 4.0, body.Report.TotalAverage)
	assert.Equal(t, "Somatization", body.Report.MainIssueDisplay)
	assert.Len(t, body.Report.Factors, 9)

	rec = env.do(t, http.MethodPost, "/api/v1/score", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScore_StrictAnswersRejected(t *testing.T) {
	cfg := testConfig()
	store, err := session.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	engine, err := scoring.NewEngine(questionnaire.Default())
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	svc := service.NewAssessmentService(logger, engine, store, service.WithStrictAnswers(true))

	server, err := NewServer(config.FromConfig(cfg), svc, logger)
	require.NoError(t, err)
	env := &testEnv{server: server, handler: server.Handler(), svc: svc}

	rec := env.do(t, http.MethodPost, "/api/v1/score", map[string]interface{}{"answers": []int{1, 2, 3}}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr domain.APIError
	decode(t, rec, &apiErr)
	assert.Equal(t, domain.ErrCodeValidation, apiErr.Code)
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.issueToken(t)
	base := "/api/v1/sessions/" + token

	rec := env.do(t, http.MethodPost, base+"/device", nil, device("phone-a"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sess session.Session
	decode(t, rec, &sess)
	assert.Equal(t, "phone-a", sess.DeviceID)
	assert.Equal(t, "clinic", sess.Label)

	rec = env.do(t, http.MethodPost, base+"/device", nil, device("phone-b"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/device", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	partial := uniform(2)[:45]
	rec = env.do(t, http.MethodPut, base+"/progress",
		map[string]interface{}{"answers": partial, "current_index": 45}, device("phone-a"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &sess)
	assert.Equal(t, session.StatusInProgress, sess.Status)
	assert.Equal(t, 45, sess.CurrentIndex)

	rec = env.do(t, http.MethodGet, base, nil, device("phone-a"))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &sess)
	assert.Equal(t, 45, sess.Answers.Answered())

	rec = env.do(t, http.MethodGet, base, nil, device("phone-b"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, base+"/result", nil, device("phone-a"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/submit",
		map[string]interface{}{"answers": uniform(3)}, device("phone-a"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var submitted struct {
		Result domain.ResultRecord `json:"result"`
	}
	decode(t, rec, &submitted)
	assert.Equal(t, 270, submitted.Result.TotalScore)
	assert.Equal(t, domain.LevelSevere, submitted.Result.RiskLevel.Level)

	rec = env.do(t, http.MethodPut, base+"/progress",
		map[string]interface{}{"answers": partial, "current_index": 45}, device("phone-a"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A repeated submission returns the stored result.
	rec = env.do(t, http.MethodPost, base+"/submit",
		map[string]interface{}{"answers": uniform(0)}, device("phone-a"))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &submitted)
	assert.Equal(t, 270, submitted.Result.TotalScore)

	rec = env.do(t, http.MethodGet, base+"/result", nil, device("phone-a"))
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Result domain.ResultRecord     `json:"result"`
		Report map[string]interface{} `json:"report"`
	}
	decode(t, rec, &result)
	assert.Equal(t, 270, result.Result.TotalScore)
	assert.Equal(t, float64(3), result.Report["total_average"])

	rec = env.do(t, http.MethodGet, base+"/result", nil, device("phone-b"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "total_score")

	rec = env.do(t, http.MethodGet, base+"/result", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, base+"/result?format=text", nil, device("phone-a"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Total score: 270 (average 3.00)")

	rec = env.do(t, http.MethodGet, base+"/result?format=pdf", nil, device("phone-a"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_UsesSavedProgressWithoutBody(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.issueToken(t)
	base := "/api/v1/sessions/" + token

	rec := env.do(t, http.MethodPut, base+"/progress",
		map[string]interface{}{"answers": uniform(1), "current_index": 90}, device("tablet"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, base+"/submit", nil, device("tablet"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var submitted struct {
		Result domain.ResultRecord `json:"result"`
	}
	decode(t, rec, &submitted)
	assert.Equal(t, 90, submitted.Result.TotalScore)
	assert.Equal(t, 90, submitted.Result.PositiveItems)
}

func TestSession_UnknownToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/sessions/does-not-exist", nil, device("phone"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var apiErr domain.APIError
	decode(t, rec, &apiErr)
	assert.Equal(t, domain.ErrCodeNotFound, apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestAdmin_RequiresPassword(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{middleware.AdminPasswordHeader: "guess"}, http.StatusUnauthorized},
		{"correct", admin(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/admin/stats", nil, tt.headers)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAdmin_LockedWithoutConfiguredPassword(t *testing.T) {
	env := newTestEnv(t, func(c *domain.Config) { c.Admin.Password = "" })

	rec := env.do(t, http.MethodGet, "/api/v1/admin/stats", nil,
		map[string]string{middleware.AdminPasswordHeader: ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_IssueTokensValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/admin/tokens", map[string]interface{}{"count": 11}, admin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/tokens", map[string]interface{}{"count": 0}, admin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/tokens", map[string]interface{}{"count": 3, "label": "ward 7"}, admin())
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Tokens []string `json:"tokens"`
		Label  string   `json:"label"`
	}
	decode(t, rec, &body)
	assert.Len(t, body.Tokens, 3)
	assert.Equal(t, "ward 7", body.Label)
}

func TestAdmin_ListStatsDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	first := env.issueToken(t)
	env.issueToken(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/"+first+"/submit",
		map[string]interface{}{"answers": uniform(0)}, device("kiosk"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/admin/sessions?limit=1", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Sessions []session.Session `json:"sessions"`
		Total    int64             `json:"total"`
	}
	decode(t, rec, &list)
	assert.Len(t, list.Sessions, 1)
	assert.Equal(t, int64(2), list.Total)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/stats", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	var stats service.Stats
	decode(t, rec, &stats)
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.ByStatus[session.StatusCompleted])
	assert.Equal(t, int64(1), stats.ByStatus[session.StatusIssued])
	assert.Equal(t, int64(1), stats.ByLevel[domain.LevelNormal])

	rec = env.do(t, http.MethodDelete, "/api/v1/admin/sessions/"+first, nil, admin())
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/admin/sessions/"+first, nil, admin())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/sessions/"+first+"/result", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_ExportImport(t *testing.T) {
	source := newTestEnv(t, nil)
	token := source.issueToken(t)
	rec := source.do(t, http.MethodPost, "/api/v1/sessions/"+token+"/submit",
		map[string]interface{}{"answers": uniform(2)}, device("laptop"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = source.do(t, http.MethodGet, "/api/v1/admin/export", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sessions.json")
	exported := rec.Body.String()
	assert.Contains(t, exported, token)

	target := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/import", strings.NewReader(exported))
	req.Header.Set(middleware.AdminPasswordHeader, testAdminPassword)
	rec = httptest.NewRecorder()
	target.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var counts struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	decode(t, rec, &counts)
	assert.Equal(t, 1, counts.Imported)
	assert.Equal(t, 0, counts.Skipped)

	rec = target.do(t, http.MethodGet, "/api/v1/sessions/"+token+"/result", nil, device("laptop"))
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/import", strings.NewReader("{not json"))
	req.Header.Set(middleware.AdminPasswordHeader, testAdminPassword)
	rec = httptest.NewRecorder()
	target.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *domain.Config) {
		c.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2}
	})

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/api/v1/factors", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/factors", nil, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var apiErr domain.APIError
	decode(t, rec, &apiErr)
	assert.Equal(t, domain.ErrCodeRateLimit, apiErr.Code)
}

func TestNewServer_InvalidRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = domain.RateLimitConfig{Enabled: true}

	logger, _ := test.NewNullLogger()
	_, err := NewServer(config.FromConfig(cfg), nil, logger)
	assert.Error(t, err)
}
