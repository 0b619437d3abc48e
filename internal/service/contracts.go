package service

import (
	"context"
	"time"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// ProgressTx is the store view available inside one atomic progression update.
//
// Nothing written through a ProgressTx becomes visible unless the enclosing
// WithinProgressTx call returns nil.
type ProgressTx interface {
	// ClaimEvent creates the processed marker if it does not exist yet.
	// It returns false when the subject was already processed.
	ClaimEvent(ctx context.Context, marker entities.ProcessedMarker) (bool, error)

	// GetProgress returns the stored record or common.ErrNotFound.
	GetProgress(ctx context.Context, userID string) (*entities.UserProgress, error)

	// SaveProgress writes the record if its Version still matches the stored
	// one, otherwise it returns common.ErrConflict.
	SaveProgress(ctx context.Context, progress *entities.UserProgress) error
}

// ProgressStore runs atomic read-modify-write units against user progress.
type ProgressStore interface {
	// WithinProgressTx executes fn atomically. A lost optimistic race,
	// at any point including commit, surfaces as common.ErrConflict.
	WithinProgressTx(ctx context.Context, fn func(ctx context.Context, tx ProgressTx) error) error

	GetProgress(ctx context.Context, userID string) (*entities.UserProgress, error)
}

// AchievementStore persists achievement records.
type AchievementStore interface {
	// SeedAchievements inserts the records the user does not have yet, by code.
	SeedAchievements(ctx context.Context, userID string, seeds []entities.Achievement) error
	ListOpenAchievements(ctx context.Context, userID string) ([]*entities.Achievement, error)
	ListAchievements(ctx context.Context, userID string) ([]*entities.Achievement, error)

	// IncrementAchievements counts one more qualifying completion on each
	// listed record as one batch; readers see either none or all of them.
	// The new progress is derived from the stored value, never from a copy
	// the caller read earlier. Records already completed are left as is and
	// are missing from the returned list.
	IncrementAchievements(ctx context.Context, userID string, ids []string, now time.Time) ([]*entities.Achievement, error)
}

// AchievementCatalog provides the goals every user starts with.
type AchievementCatalog interface {
	Seeds(userID string) []entities.Achievement
}

// UserDirectory resolves household members.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*entities.User, error)
	GetUserByChatID(ctx context.Context, chatID int64) (*entities.User, error)
	ListDigestRecipients(ctx context.Context) ([]*entities.User, error)
}

// ChoreRepository reads chores for the daily digest.
type ChoreRepository interface {
	// ListPendingDue returns pending chores of the user with from <= due < to,
	// ordered by due time.
	ListPendingDue(ctx context.Context, userID string, from, to time.Time, limit int) ([]entities.Chore, error)
}

// PraiseRepository stores delivered praise messages.
type PraiseRepository interface {
	SavePraise(ctx context.Context, praise *entities.Praise) error
}

// Notifier delivers notification requests. Implementations log their own
// delivery failures; callers never retry.
type Notifier interface {
	Notify(ctx context.Context, req entities.NotificationRequest) error
}

// AchievementAdvancer advances achievements after a committed completion.
type AchievementAdvancer interface {
	Advance(ctx context.Context, userID string, event entities.CompletionEvent) (int, error)
}
