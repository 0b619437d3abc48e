package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// AchievementService advances counting achievements. It runs outside the
// progression transaction and may fail on its own.
type AchievementService struct {
	store   AchievementStore
	catalog AchievementCatalog
	now     func() time.Time
	logger  *zap.Logger
}

// NewAchievementService creates a new achievement service. catalog may be nil.
func NewAchievementService(store AchievementStore, catalog AchievementCatalog, logger *zap.Logger) *AchievementService {
	return &AchievementService{
		store:   store,
		catalog: catalog,
		now:     time.Now,
		logger:  logger,
	}
}

// Advance counts event towards every open achievement it matches and
// returns how many records were updated.
func (s *AchievementService) Advance(ctx context.Context, userID string, event entities.CompletionEvent) (int, error) {
	if s.catalog != nil {
		if seeds := s.catalog.Seeds(userID); len(seeds) > 0 {
			if err := s.store.SeedAchievements(ctx, userID, seeds); err != nil {
				return 0, fmt.Errorf("seed achievements: %w", err)
			}
		}
	}

	open, err := s.store.ListOpenAchievements(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list open achievements: %w", err)
	}

	ids := make([]string, 0, len(open))
	for _, a := range open {
		if a.Matches(event) {
			ids = append(ids, a.ID)
		}
	}

	if len(ids) == 0 {
		return 0, nil
	}

	updated, err := s.store.IncrementAchievements(ctx, userID, ids, s.now())
	if err != nil {
		return 0, fmt.Errorf("increment achievements: %w", err)
	}

	var unlocked []string
	for _, a := range updated {
		if a.Completed {
			unlocked = append(unlocked, a.Code)
		}
	}

	s.logger.Info("achievements updated",
		zap.String("user_id", userID),
		zap.Int("updated", len(updated)),
		zap.Strings("unlocked", unlocked),
	)

	return len(updated), nil
}

// List returns every achievement of the user.
func (s *AchievementService) List(ctx context.Context, userID string) ([]*entities.Achievement, error) {
	return s.store.ListAchievements(ctx, userID)
}
