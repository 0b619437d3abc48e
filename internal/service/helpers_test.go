package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

var testNow = time.Date(2026, time.May, 6, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testConfig() service.ProgressionConfig {
	return service.ProgressionConfig{
		Location:       time.UTC,
		MaxAttempts:    4,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	reqs []entities.NotificationRequest
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, req entities.NotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reqs = append(n.reqs, req)
	return n.err
}

func (n *recordingNotifier) Requests() []entities.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]entities.NotificationRequest, len(n.reqs))
	copy(out, n.reqs)
	return out
}

type failingAdvancer struct{ calls int }

func (a *failingAdvancer) Advance(context.Context, string, entities.CompletionEvent) (int, error) {
	a.calls++
	return 0, errors.New("achievement store unavailable")
}

type staticCatalog []entities.Achievement

func (c staticCatalog) Seeds(string) []entities.Achievement {
	out := make([]entities.Achievement, len(c))
	copy(out, c)
	return out
}

func completion(subject, user string, d entities.Difficulty, at time.Time) entities.CompletionEvent {
	return entities.CompletionEvent{
		SubjectID:  subject,
		UserID:     user,
		Difficulty: d,
		OccurredAt: at,
	}
}

func nopLogger() *zap.Logger { return zap.NewNop() }
