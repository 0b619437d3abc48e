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

const userColumns = `id, COALESCE(chat_id, 0), name, household_id, notifications_enabled`

// UserRepository provides access to household members.
type UserRepository struct {
	db postgres.DBTX
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db postgres.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, userID string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.get(ctx, query, userID)
}

// GetUserByChatID retrieves the user linked to a Telegram chat.
func (r *UserRepository) GetUserByChatID(ctx context.Context, chatID int64) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE chat_id = $1`
	return r.get(ctx, query, chatID)
}

// ListDigestRecipients returns users who opted in and linked a chat.
func (r *UserRepository) ListDigestRecipients(ctx context.Context) ([]*entities.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE notifications_enabled = TRUE AND chat_id IS NOT NULL AND chat_id <> 0
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list digest recipients: %w", err)
	}
	defer rows.Close()

	var users []*entities.User
	for rows.Next() {
		u := new(entities.User)
		if err := rows.Scan(&u.ID, &u.ChatID, &u.Name, &u.HouseholdID, &u.NotificationsEnabled); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (*entities.User, error) {
	var u entities.User
	err := r.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.ChatID, &u.Name, &u.HouseholdID, &u.NotificationsEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

var _ service.UserDirectory = (*UserRepository)(nil)
