package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/common"
	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// ErrConflictExhausted is returned when every attempt of a progression update
// lost an optimistic race. The event was not applied and may be re-delivered.
var ErrConflictExhausted = errors.New("progression conflict retries exhausted")

// errAlreadyProcessed aborts the transaction body when the event was claimed before.
var errAlreadyProcessed = errors.New("completion already processed")

// Status is the result class of a processed completion.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusIgnored Status = "ignored" // transition is not a completion
)

// Outcome reports what Process did with a completion event.
type Outcome struct {
	Status              Status
	Progress            *entities.UserProgress // snapshot after commit, nil when skipped
	XPAwarded           int
	LevelsGained        int
	AchievementsUpdated int
	Attempts            int
}

// ProgressionConfig tunes the progression coordinator.
type ProgressionConfig struct {
	Location       *time.Location // calendar-day boundary for streaks
	MaxAttempts    int            // total transaction attempts, at least 1
	InitialBackoff time.Duration  // first retry delay, doubled per attempt
	MaxBackoff     time.Duration  // cap for a single retry delay
}

// DefaultProgressionConfig returns the settings used when none are configured.
func DefaultProgressionConfig() ProgressionConfig {
	return ProgressionConfig{
		Location:       time.UTC,
		MaxAttempts:    4,
		InitialBackoff: 20 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// ProgressionService turns completion events into user progress updates.
type ProgressionService struct {
	store        ProgressStore
	achievements AchievementAdvancer
	notifier     Notifier
	cfg          ProgressionConfig
	now          func() time.Time
	logger       *zap.Logger
}

// ProgressionOption customises a ProgressionService.
type ProgressionOption func(*ProgressionService)

// WithClock replaces the wall clock used for commit timestamps.
func WithClock(now func() time.Time) ProgressionOption {
	return func(s *ProgressionService) { s.now = now }
}

// NewProgressionService creates a new progression coordinator.
// achievements and notifier may be nil.
func NewProgressionService(
	store ProgressStore,
	achievements AchievementAdvancer,
	notifier Notifier,
	cfg ProgressionConfig,
	logger *zap.Logger,
	opts ...ProgressionOption,
) *ProgressionService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	s := &ProgressionService{
		store:        store,
		achievements: achievements,
		notifier:     notifier,
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Process applies one completion event.
//
// A duplicate event yields StatusSkipped without touching any state. When
// every attempt conflicts, the returned error wraps ErrConflictExhausted.
// Level-up notifications and achievement advancement run only after the
// progress update has committed, and their failures never fail Process.
func (s *ProgressionService) Process(ctx context.Context, event entities.CompletionEvent) (*Outcome, error) {
	var (
		outcome  *Outcome
		attempts int
	)

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempts++

		o, err := s.apply(ctx, event)
		if errors.Is(err, common.ErrConflict) {
			s.logger.Debug("progression conflict, retrying",
				zap.String("subject_id", event.SubjectID),
				zap.String("user_id", event.UserID),
				zap.Int("attempt", attempts),
			)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		outcome = o
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			s.logger.Warn("progression conflict retries exhausted",
				zap.String("subject_id", event.SubjectID),
				zap.String("user_id", event.UserID),
				zap.Int("attempts", attempts),
			)
			return nil, fmt.Errorf("process completion %s: %w", event.SubjectID, ErrConflictExhausted)
		}
		return nil, fmt.Errorf("process completion %s: %w", event.SubjectID, err)
	}

	outcome.Attempts = attempts

	if outcome.Status == StatusSkipped {
		s.logger.Info("duplicate completion skipped",
			zap.String("subject_id", event.SubjectID),
			zap.String("user_id", event.UserID),
		)
		return outcome, nil
	}

	s.logger.Info("progression updated",
		zap.String("subject_id", event.SubjectID),
		zap.String("user_id", event.UserID),
		zap.Int("xp_reward", outcome.XPAwarded),
		zap.Int("xp", outcome.Progress.XP),
		zap.Int("level", outcome.Progress.Level),
		zap.Int("current_streak", outcome.Progress.CurrentStreak),
		zap.Int("attempts", attempts),
	)

	if outcome.LevelsGained > 0 {
		s.notifyLevelUp(ctx, outcome)
	}

	outcome.AchievementsUpdated = s.advanceAchievements(ctx, event)

	return outcome, nil
}

// HandleTransition processes an upstream chore transition. Transitions that
// are not a first completion are reported as StatusIgnored.
func (s *ProgressionService) HandleTransition(ctx context.Context, t entities.ChoreTransition) (*Outcome, error) {
	event, ok := t.CompletionEvent()
	if !ok {
		s.logger.Debug("transition ignored",
			zap.String("chore_id", t.ChoreID),
			zap.String("before_status", string(t.BeforeStatus)),
			zap.String("after_status", string(t.AfterStatus)),
		)
		return &Outcome{Status: StatusIgnored}, nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	return s.Process(ctx, event)
}

// apply runs one attempt of the transactional update.
func (s *ProgressionService) apply(ctx context.Context, event entities.CompletionEvent) (*Outcome, error) {
	var outcome *Outcome

	err := s.store.WithinProgressTx(ctx, func(ctx context.Context, tx ProgressTx) error {
		claimed, err := tx.ClaimEvent(ctx, entities.ProcessedMarker{
			SubjectID:   event.SubjectID,
			UserID:      event.UserID,
			ProcessedAt: s.now(),
		})
		if err != nil {
			return fmt.Errorf("claim event: %w", err)
		}
		if !claimed {
			return errAlreadyProcessed
		}

		progress, err := tx.GetProgress(ctx, event.UserID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			progress = entities.NewUserProgress(event.UserID)
		case err != nil:
			return fmt.Errorf("get progress: %w", err)
		}

		// UpdatedAt is read last so it reflects the write that commits.
		res := progress.ApplyCompletion(event, s.cfg.Location, s.now())

		if err := tx.SaveProgress(ctx, progress); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}

		outcome = &Outcome{
			Status:       StatusApplied,
			Progress:     progress,
			XPAwarded:    res.XPAwarded,
			LevelsGained: res.LevelsGained,
		}
		return nil
	})
	if errors.Is(err, errAlreadyProcessed) {
		return &Outcome{Status: StatusSkipped}, nil
	}
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

func (s *ProgressionService) backoff() retry.Backoff {
	b := retry.NewExponential(s.cfg.InitialBackoff)
	b = retry.WithCappedDuration(s.cfg.MaxBackoff, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(s.cfg.MaxAttempts-1), b)
}

func (s *ProgressionService) notifyLevelUp(ctx context.Context, outcome *Outcome) {
	if s.notifier == nil {
		return
	}

	p := outcome.Progress
	req := entities.NotificationRequest{
		UserID: p.UserID,
		Kind:   entities.NotificationLevelUp,
		Payload: entities.LevelUpPayload{
			PreviousLevel: p.Level - outcome.LevelsGained,
			NewLevel:      p.Level,
			XP:            p.XP,
			XPToNext:      p.XPToNextLevel(),
		},
	}

	if err := s.notifier.Notify(ctx, req); err != nil {
		s.logger.Warn("level-up notification failed",
			zap.String("user_id", p.UserID),
			zap.Int("level", p.Level),
			zap.Error(err),
		)
	}
}

func (s *ProgressionService) advanceAchievements(ctx context.Context, event entities.CompletionEvent) int {
	if s.achievements == nil {
		return 0
	}

	n, err := s.achievements.Advance(ctx, event.UserID, event)
	if err != nil {
		s.logger.Error("failed to update achievements",
			zap.String("user_id", event.UserID),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err),
		)
		return 0
	}

	return n
}

// GetProgress returns the stored progress of a user, or a fresh record when
// the user has none yet.
func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*entities.UserProgress, error) {
	p, err := s.store.GetProgress(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return entities.NewUserProgress(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}
