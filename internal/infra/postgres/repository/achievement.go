package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/infra/postgres"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

const achievementColumns = `id, user_id, code, kind, difficulty, progress, target, completed, completed_at, updated_at`

// AchievementRepository provides access to achievement records.
type AchievementRepository struct {
	db postgres.DBTX
	tr *postgres.Transactor
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(db postgres.DBTX, tr *postgres.Transactor) *AchievementRepository {
	return &AchievementRepository{db: db, tr: tr}
}

// SeedAchievements inserts the catalog records the user does not have yet.
func (r *AchievementRepository) SeedAchievements(ctx context.Context, userID string, seeds []entities.Achievement) error {
	if len(seeds) == 0 {
		return nil
	}

	query := `
		INSERT INTO achievements (id, user_id, code, kind, difficulty, progress, target)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, code) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, s := range seeds {
		batch.Queue(query, s.ID, userID, s.Code, s.Kind, s.Difficulty, s.Progress, s.Target)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed achievements: %w", err)
	}

	return nil
}

// ListOpenAchievements returns the records not completed yet.
func (r *AchievementRepository) ListOpenAchievements(ctx context.Context, userID string) ([]*entities.Achievement, error) {
	return r.list(ctx, `
		SELECT ` + achievementColumns + `
		FROM achievements
		WHERE user_id = $1 AND completed = FALSE
		ORDER BY code
	`, userID)
}

// ListAchievements returns every record of the user.
func (r *AchievementRepository) ListAchievements(ctx context.Context, userID string) ([]*entities.Achievement, error) {
	return r.list(ctx, `
		SELECT ` + achievementColumns + `
		FROM achievements
		WHERE user_id = $1
		ORDER BY completed DESC, code
	`, userID)
}

// IncrementAchievements bumps every listed open row by one in a single
// batch inside one transaction. The increment happens in SQL, so concurrent
// callers never overwrite each other. Rows completed in the meantime are not
// touched and not returned.
func (r *AchievementRepository) IncrementAchievements(ctx context.Context, userID string, ids []string, now time.Time) ([]*entities.Achievement, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		UPDATE achievements SET
			progress = progress + 1,
			completed = progress + 1 >= target,
			completed_at = CASE WHEN progress + 1 >= target THEN $3 ELSE completed_at END,
			updated_at = $3
		WHERE id = $1 AND user_id = $2 AND completed = FALSE
		RETURNING ` + achievementColumns

	var out []*entities.Achievement
	err := r.tr.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, id := range ids {
			batch.Queue(query, id, userID, now)
		}

		br := tx.SendBatch(ctx, batch)
		for range ids {
			a, err := scanAchievement(br.QueryRow())
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("increment achievement: %w", err)
			}
			out = append(out, a)
		}

		if err := br.Close(); err != nil {
			return fmt.Errorf("increment achievements: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *AchievementRepository) list(ctx context.Context, query, userID string) ([]*entities.Achievement, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var out []*entities.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func scanAchievement(row pgx.Row) (*entities.Achievement, error) {
	a := new(entities.Achievement)
	if err := row.Scan(
		&a.ID, &a.UserID, &a.Code, &a.Kind, &a.Difficulty,
		&a.Progress, &a.Target, &a.Completed, &a.CompletedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return a, nil
}

var _ service.AchievementStore = (*AchievementRepository)(nil)
