package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/infra/postgres"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

// ChoreRepository reads chores for the daily digest.
type ChoreRepository struct {
	db postgres.DBTX
}

// NewChoreRepository creates a new ChoreRepository.
func NewChoreRepository(db postgres.DBTX) *ChoreRepository {
	return &ChoreRepository{db: db}
}

// ListPendingDue returns the pending chores of a user due in [from, to).
func (r *ChoreRepository) ListPendingDue(ctx context.Context, userID string, from, to time.Time, limit int) ([]entities.Chore, error) {
	query := `
		SELECT id, household_id, assigned_to, title, difficulty, status, due_at
		FROM chores
		WHERE assigned_to = $1
		  AND status = 'pending'
		  AND due_at >= $2 AND due_at < $3
		ORDER BY due_at, id
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query, userID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending chores: %w", err)
	}
	defer rows.Close()

	var chores []entities.Chore
	for rows.Next() {
		var c entities.Chore
		if err := rows.Scan(&c.ID, &c.HouseholdID, &c.AssignedTo, &c.Title, &c.Difficulty, &c.Status, &c.DueAt); err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, c)
	}

	return chores, rows.Err()
}

var _ service.ChoreRepository = (*ChoreRepository)(nil)
