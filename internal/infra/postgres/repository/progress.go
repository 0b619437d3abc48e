package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/chorequest-bot/internal/common"
	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/infra/postgres"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

// ProgressRepository stores user progress and processed-event markers.
type ProgressRepository struct {
	db postgres.DBTX
	tr *postgres.Transactor
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(db postgres.DBTX, tr *postgres.Transactor) *ProgressRepository {
	return &ProgressRepository{db: db, tr: tr}
}

// WithinProgressTx implements service.ProgressStore. The marker insert and
// the progress write share one database transaction.
func (r *ProgressRepository) WithinProgressTx(ctx context.Context, fn func(ctx context.Context, tx service.ProgressTx) error) error {
	return r.tr.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &progressTx{db: tx})
	})
}

// GetProgress implements service.ProgressStore.
func (r *ProgressRepository) GetProgress(ctx context.Context, userID string) (*entities.UserProgress, error) {
	return getProgress(ctx, r.db, userID)
}

type progressTx struct {
	db postgres.DBTX
}

func (t *progressTx) ClaimEvent(ctx context.Context, marker entities.ProcessedMarker) (bool, error) {
	query := `
		INSERT INTO processed_events (subject_id, user_id, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_id) DO NOTHING
	`

	tag, err := t.db.Exec(ctx, query, marker.SubjectID, marker.UserID, marker.ProcessedAt)
	if err != nil {
		return false, fmt.Errorf("insert processed event: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (t *progressTx) GetProgress(ctx context.Context, userID string) (*entities.UserProgress, error) {
	return getProgress(ctx, t.db, userID)
}

// SaveProgress inserts a new record when Version is zero, otherwise updates
// the row only if its version still matches.
func (t *progressTx) SaveProgress(ctx context.Context, p *entities.UserProgress) error {
	if p.Version == 0 {
		return t.insert(ctx, p)
	}
	return t.update(ctx, p)
}

func (t *progressTx) insert(ctx context.Context, p *entities.UserProgress) error {
	query := `
		INSERT INTO user_progress (
			user_id, xp, level, total_completed, current_streak, longest_streak,
			last_completion_day, last_completion_at, version, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)
		ON CONFLICT (user_id) DO NOTHING
	`

	tag, err := t.db.Exec(ctx, query,
		p.UserID,
		p.XP,
		p.Level,
		p.TotalCompleted,
		p.CurrentStreak,
		p.LongestStreak,
		p.LastCompletionDay,
		p.LastCompletionAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrConflict
	}

	p.Version = 1
	return nil
}

func (t *progressTx) update(ctx context.Context, p *entities.UserProgress) error {
	query := `
		UPDATE user_progress SET
			xp = $3,
			level = $4,
			total_completed = $5,
			current_streak = $6,
			longest_streak = $7,
			last_completion_day = $8,
			last_completion_at = $9,
			updated_at = $10,
			version = version + 1
		WHERE user_id = $1 AND version = $2
	`

	tag, err := t.db.Exec(ctx, query,
		p.UserID,
		p.Version,
		p.XP,
		p.Level,
		p.TotalCompleted,
		p.CurrentStreak,
		p.LongestStreak,
		p.LastCompletionDay,
		p.LastCompletionAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrConflict
	}

	p.Version++
	return nil
}

func getProgress(ctx context.Context, db postgres.DBTX, userID string) (*entities.UserProgress, error) {
	query := `
		SELECT user_id, xp, level, total_completed, current_streak, longest_streak,
		       last_completion_day, last_completion_at, version, updated_at
		FROM user_progress
		WHERE user_id = $1
	`

	var p entities.UserProgress
	err := db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.XP,
		&p.Level,
		&p.TotalCompleted,
		&p.CurrentStreak,
		&p.LongestStreak,
		&p.LastCompletionDay,
		&p.LastCompletionAt,
		&p.Version,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	if p.LastCompletionDay != nil {
		day := p.LastCompletionDay.UTC()
		p.LastCompletionDay = &day
	}

	return &p, nil
}

var _ service.ProgressStore = (*ProgressRepository)(nil)
