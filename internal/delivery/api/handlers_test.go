package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/common"
	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/infra/memory"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, entities.NotificationRequest) error { return nil }

type conflictingStore struct{}

func (conflictingStore) WithinProgressTx(context.Context, func(context.Context, service.ProgressTx) error) error {
	return common.ErrConflict
}

func (conflictingStore) GetProgress(context.Context, string) (*entities.UserProgress, error) {
	return nil, common.ErrNotFound
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func newTestServer(t *testing.T, store service.ProgressStore) (*Server, *memory.Store) {
	t.Helper()

	mem := memory.New()
	mem.PutUser(entities.User{ID: "alice", Name: "Alice", ChatID: 1, HouseholdID: "h1", NotificationsEnabled: true})
	mem.PutUser(entities.User{ID: "bob", Name: "Bob", ChatID: 2, HouseholdID: "h1", NotificationsEnabled: true})
	if store == nil {
		store = mem
	}

	logger := zap.NewNop()
	achievements := service.NewAchievementService(mem, nil, logger)
	progression := service.NewProgressionService(store, achievements, nopNotifier{}, service.ProgressionConfig{
		Location:       time.UTC,
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}, logger)
	praise := service.NewPraiseService(mem, mem, nopNotifier{}, logger)

	return NewServer(Deps{
		Transitions:  progression,
		Progress:     progression,
		Achievements: achievements,
		Praise:       praise,
	}, time.Second, logger), mem
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

const completedTransition = `{
	"chore_id": "c1",
	"household_id": "h1",
	"assigned_to": "alice",
	"difficulty": "hard",
	"before_status": "pending",
	"after_status": "completed",
	"occurred_at": "2026-05-06T09:00:00Z"
}`

func TestTransitionEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec, env := do(t, s, http.MethodPost, "/api/v1/transitions", completedTransition, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got transitionResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, service.StatusApplied, got.Status)
	assert.Equal(t, 50, got.XPAwarded)
	require.NotNil(t, got.Progress)
	assert.Equal(t, "2026-05-06", got.Progress.LastCompletionDay)

	rec, env = do(t, s, http.MethodPost, "/api/v1/transitions", completedTransition, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, service.StatusSkipped, got.Status)

	rec, env = do(t, s, http.MethodPost, "/api/v1/transitions",
		`{"chore_id":"c2","assigned_to":"alice","before_status":"pending","after_status":"pending"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, service.StatusIgnored, got.Status)

	rec, env = do(t, s, http.MethodPost, "/api/v1/transitions", `{"chore_id":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestTransitionEndpoint_AcceptsExtraSnapshotFields(t *testing.T) {
	s, _ := newTestServer(t, nil)

	body := `{
		"chore_id": "c9",
		"assigned_to": "alice",
		"difficulty": "easy",
		"before_status": "pending",
		"after_status": "completed",
		"title": "Take out the trash",
		"due_at": "2026-05-06T08:00:00Z",
		"photo": {"url": "https://example.com/p.jpg"}
	}`

	rec, env := do(t, s, http.MethodPost, "/api/v1/transitions", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got transitionResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, service.StatusApplied, got.Status)
	assert.Equal(t, 10, got.XPAwarded)
}

func TestTransitionEndpoint_ConflictExhausted(t *testing.T) {
	s, _ := newTestServer(t, conflictingStore{})

	rec, env := do(t, s, http.MethodPost, "/api/v1/transitions", completedTransition, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Code)
}

func TestProgressAndAchievementEndpoints(t *testing.T) {
	s, mem := newTestServer(t, nil)
	require.NoError(t, mem.SeedAchievements(context.Background(), "alice", []entities.Achievement{
		{ID: "a1", Code: "first_chore", Kind: entities.AchievementKindCompletionCount, Target: 1},
	}))

	rec, _ := do(t, s, http.MethodPost, "/api/v1/transitions", completedTransition, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, s, http.MethodGet, "/api/v1/users/alice/progress", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p progressResponse
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 50, p.XP)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 282-50, p.XPToNextLevel)
	assert.Equal(t, 1, p.CurrentStreak)

	rec, env = do(t, s, http.MethodGet, "/api/v1/users/nobody/progress", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "nobody", p.UserID)
	assert.Zero(t, p.XP)

	rec, env = do(t, s, http.MethodGet, "/api/v1/users/alice/achievements", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []achievementResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)
	assert.NotNil(t, list[0].CompletedAt)
}

func TestPraiseEndpoint(t *testing.T) {
	s, mem := newTestServer(t, nil)
	mem.PutUser(entities.User{ID: "stranger", ChatID: 9, HouseholdID: "h2", NotificationsEnabled: true})

	tests := []struct {
		name   string
		sender string
		body   string
		status int
	}{
		{"delivered", "alice", `{"target_user_id":"bob","message":"nice!"}`, http.StatusOK},
		{"missing sender", "", `{"target_user_id":"bob","message":"nice!"}`, http.StatusUnauthorized},
		{"empty message", "alice", `{"target_user_id":"bob","message":"   "}`, http.StatusBadRequest},
		{"unknown target", "alice", `{"target_user_id":"ghost","message":"hi"}`, http.StatusNotFound},
		{"other household", "alice", `{"target_user_id":"stranger","message":"hi"}`, http.StatusForbidden},
		{"unknown field", "alice", `{"target_user_id":"bob","message":"hi","sender_id":"x"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.sender != "" {
				header[UserIDHeader] = tt.sender
			}
			rec, _ := do(t, s, http.MethodPost, "/api/v1/praises", tt.body, header)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Len(t, mem.Praises(), 1)
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec, env := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, _ = do(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.deps.Ready = func(context.Context) error { return errors.New("db down") }
	rec, _ = do(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
