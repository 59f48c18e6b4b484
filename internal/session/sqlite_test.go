package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TJerry3s/SCI-90test/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "session-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "sessions.db"))
	require.NoError(t, err)
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "session-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	sess := &Session{Token: "tok-1", Label: "cohort A"}

	require.NoError(t, store.Create(ctx, sess))
	assert.NotZero(t, sess.ID)
	assert.Equal(t, StatusIssued, sess.Status)
	assert.False(t, sess.CreatedAt.IsZero())

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "cohort A", got.Label)
	assert.Equal(t, StatusIssued, got.Status)
	assert.Empty(t, got.Answers)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.CompletedAt)
}

func TestSQLiteStore_CreateDuplicateToken(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Session{Token: "dup"}))
	assert.Error(t, store.Create(ctx, &Session{Token: "dup"}))
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_SaveRoundTripsAnswersAndResult(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	sess := &Session{Token: "tok-2"}
	require.NoError(t, store.Create(ctx, sess))
	originalID := sess.ID

	two := 2
	sess.DeviceID = "device-abc"
	sess.Answers = domain.AnswerVector{&two, nil, &two}
	sess.CurrentIndex = 3
	sess.Status = StatusInProgress
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, originalID, sess.ID, "Should update existing record")

	got, err := store.Get(ctx, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, "device-abc", got.DeviceID)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.Equal(t, 3, got.CurrentIndex)
	require.Len(t, got.Answers, 3)
	assert.Equal(t, 2, got.Answers.Value(0))
	assert.Nil(t, got.Answers[1])

	completed := time.Now().UTC().Truncate(time.Second)
	sess.Status = StatusCompleted
	sess.CompletedAt = &completed
	sess.Result = &domain.ResultRecord{
		TotalScore:   4,
		TotalAverage: 4.0 / 90,
		Factors: map[string]domain.FactorResult{
			"depression": {Name: "depression", Score: 4, Average: 0.2, ItemCount: 20},
		},
		RiskLevel: domain.RiskLevel{Level: domain.LevelNormal, Color: "#43A047"},
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err = store.Get(ctx, "tok-2")
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 4, got.Result.TotalScore)
	assert.Equal(t, domain.LevelNormal, got.Result.RiskLevel.Level)
	assert.Equal(t, 0.2, got.Result.Factors["depression"].Average)
	assert.True(t, completed.Equal(*got.CompletedAt))
}

func TestSQLiteStore_SaveInsertsUnknownToken(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	sess := &Session{Token: "fresh", Status: StatusIssued}
	require.NoError(t, store.Save(ctx, sess))
	assert.NotZero(t, sess.ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, token := range []string{"a", "b", "c"} {
		sess := &Session{Token: token, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, store.Create(ctx, sess))
	}

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Token, "newest first")

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].Token)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteStore_CountByStatus(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Session{Token: "a"}))
	require.NoError(t, store.Create(ctx, &Session{Token: "b", Status: StatusInProgress}))
	require.NoError(t, store.Create(ctx, &Session{Token: "c", Status: StatusCompleted}))
	require.NoError(t, store.Create(ctx, &Session{Token: "d", Status: StatusCompleted}))

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[StatusIssued])
	assert.Equal(t, int64(1), counts[StatusInProgress])
	assert.Equal(t, int64(2), counts[StatusCompleted])
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Session{Token: "gone"}))

	require.NoError(t, store.Delete(ctx, "gone"))

	_, err := store.Get(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "gone"), domain.ErrNotFound)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()

	ctx := context.Background()
	one := 1
	require.NoError(t, source.Create(ctx, &Session{Token: "x", Answers: domain.AnswerVector{&one}}))
	require.NoError(t, source.Create(ctx, &Session{Token: "y"}))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)

	target := createTestStore(t)
	defer target.Close()
	require.NoError(t, target.Create(ctx, &Session{Token: "y"}))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	got, err := target.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Answers.Value(0))
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}

func TestSQLiteStore_ImportRejectsEntriesWithoutToken(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	tests := []struct {
		name string
		body string
	}{
		{"null entry", `{"sessions":[null]}`},
		{"empty token", `{"sessions":[{"token":"","status":"issued"}]}`},
		{"blank token after valid entry", `{"sessions":[{"token":"ok-1","status":"issued"},{"token":"  "}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader([]byte(tt.body)))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Zero(t, imported)
			assert.Zero(t, skipped)
		})
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "rejected files import nothing")
}
