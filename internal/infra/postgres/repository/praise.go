package repository

import (
	"context"
	"fmt"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/infra/postgres"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

// PraiseRepository records delivered praise messages.
type PraiseRepository struct {
	db postgres.DBTX
}

// NewPraiseRepository creates a new PraiseRepository.
func NewPraiseRepository(db postgres.DBTX) *PraiseRepository {
	return &PraiseRepository{db: db}
}

// SavePraise inserts a praise record.
func (r *PraiseRepository) SavePraise(ctx context.Context, p *entities.Praise) error {
	query := `
		INSERT INTO praises (id, household_id, sender_id, target_user_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.Exec(ctx, query, p.ID, p.HouseholdID, p.SenderID, p.TargetUserID, p.Message, p.CreatedAt); err != nil {
		return fmt.Errorf("save praise: %w", err)
	}
	return nil
}

var _ service.PraiseRepository = (*PraiseRepository)(nil)
