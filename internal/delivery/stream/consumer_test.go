package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

type fakeClient struct {
	mu        sync.Mutex
	read      [][]redis.XMessage
	claim     []redis.XMessage
	acked     []string
	groupErr  error
	readErr   error
	groupCall int
}

func (f *fakeClient) XGroupCreateMkStream(ctx context.Context, _, _, _ string) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCall++
	cmd := redis.NewStatusCmd(ctx)
	if f.groupErr != nil {
		cmd.SetErr(f.groupErr)
	} else {
		cmd.SetVal("OK")
	}
	return cmd
}

func (f *fakeClient) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewXStreamSliceCmd(ctx)
	switch {
	case f.readErr != nil:
		cmd.SetErr(f.readErr)
	case len(f.read) == 0:
		cmd.SetErr(redis.Nil)
	default:
		cmd.SetVal([]redis.XStream{{Stream: a.Streams[0], Messages: f.read[0]}})
		f.read = f.read[1:]
	}
	return cmd
}

func (f *fakeClient) XAck(ctx context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(ids)))
	return cmd
}

func (f *fakeClient) XAutoClaim(ctx context.Context, _ *redis.XAutoClaimArgs) *redis.XAutoClaimCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewXAutoClaimCmd(ctx)
	cmd.SetVal(f.claim, "0-0")
	f.claim = nil
	return cmd
}

func (f *fakeClient) Acked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

type fakeHandler struct {
	mu   sync.Mutex
	seen []entities.ChoreTransition
	errs map[string]error
}

func (h *fakeHandler) HandleTransition(_ context.Context, t entities.ChoreTransition) (*service.Outcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, t)
	if err := h.errs[t.ChoreID]; err != nil {
		return nil, err
	}
	if _, ok := t.CompletionEvent(); !ok {
		return &service.Outcome{Status: service.StatusIgnored}, nil
	}
	return &service.Outcome{Status: service.StatusApplied}, nil
}

func entry(id, choreID, before, after string) redis.XMessage {
	return redis.XMessage{
		ID: id,
		Values: map[string]any{
			PayloadField: fmt.Sprintf(`{"chore_id":%q,"assigned_to":"u1","before_status":%q,"after_status":%q}`, choreID, before, after),
		},
	}
}

func newTestConsumer(client Client, handler TransitionHandler) *Consumer {
	return NewConsumer(client, handler, Config{Stream: "chores", Group: "progression"}, zap.NewNop())
}

func TestReadOnce_AckPolicy(t *testing.T) {
	client := &fakeClient{read: [][]redis.XMessage{{
		entry("1-0", "applied", "pending", "completed"),
		entry("2-0", "ignored", "pending", "pending"),
		{ID: "3-0", Values: map[string]any{PayloadField: "{not json"}},
		{ID: "4-0", Values: map[string]any{"other": "x"}},
		entry("5-0", "conflicted", "pending", "completed"),
		entry("6-0", "broken", "pending", "completed"),
	}}}
	handler := &fakeHandler{errs: map[string]error{
		"conflicted": fmt.Errorf("process completion conflicted: %w", service.ErrConflictExhausted),
		"broken":     errors.New("connection reset"),
	}}
	c := newTestConsumer(client, handler)

	require.NoError(t, c.ReadOnce(context.Background()))

	assert.Equal(t, []string{"1-0", "2-0", "3-0", "4-0"}, client.Acked())
	assert.Len(t, handler.seen, 4, "malformed entries never reach the handler")
}

func TestReadOnce_EmptyAndError(t *testing.T) {
	client := &fakeClient{}
	c := newTestConsumer(client, &fakeHandler{})
	require.NoError(t, c.ReadOnce(context.Background()))

	client.readErr = errors.New("i/o timeout")
	assert.Error(t, c.ReadOnce(context.Background()))
}

func TestReclaim(t *testing.T) {
	client := &fakeClient{claim: []redis.XMessage{
		entry("7-0", "stale", "pending", "completed"),
	}}
	handler := &fakeHandler{}
	c := newTestConsumer(client, handler)

	n := c.Reclaim(context.Background())
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"7-0"}, client.Acked())
	require.Len(t, handler.seen, 1)
	assert.Equal(t, "stale", handler.seen[0].ChoreID)
}

func TestRun_GroupErrors(t *testing.T) {
	client := &fakeClient{groupErr: errors.New("NOPERM no permissions")}
	c := newTestConsumer(client, &fakeHandler{})
	assert.Error(t, c.Run(context.Background()))

	client.groupErr = errors.New("BUSYGROUP Consumer Group name already exists")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, c.Run(ctx))
}

func TestParseMessage(t *testing.T) {
	msg := redis.XMessage{
		ID: "1715000000000-3",
		Values: map[string]any{
			PayloadField: `{"chore_id":"c1","household_id":"h1","assigned_to":"u1","difficulty":"hard","before_status":"pending","after_status":"completed"}`,
		},
	}

	tr, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "c1", tr.ChoreID)
	assert.Equal(t, "h1", tr.HouseholdID)
	assert.Equal(t, time.UnixMilli(1715000000000).UTC(), tr.OccurredAt)

	msg.Values[PayloadField] = `{"chore_id":"c1","occurred_at":"2026-05-06T09:00:00Z"}`
	tr, err = ParseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC), tr.OccurredAt)

	_, err = ParseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{PayloadField: 42}})
	assert.Error(t, err)
}
