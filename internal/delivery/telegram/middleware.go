package telegram

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/common"
	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// HandlerFunc handles one command sent from a chat.
type HandlerFunc func(ctx context.Context, chatID int64) error

// MemberHandlerFunc handles a command on behalf of the member linked to the chat.
type MemberHandlerFunc func(ctx context.Context, chatID int64, user *entities.User) error

// withErrorHandling logs a failed command and tells the chat something went wrong.
func (h *Handler) withErrorHandling(command string, fn HandlerFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		err := fn(ctx, chatID)
		if err == nil {
			return nil
		}

		h.logger.Error("command failed",
			zap.String("command", command),
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		h.send(newMessage(chatID, md(msgInternalError)))
		return nil
	}
}

// withMember resolves the member behind the chat. Unlinked chats get
// instructions instead.
func (h *Handler) withMember(fn MemberHandlerFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		user, err := h.users.GetUserByChatID(ctx, chatID)
		if errors.Is(err, common.ErrNotFound) {
			h.send(newMessage(chatID, md(msgNotLinked)))
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve chat %d: %w", chatID, err)
		}
		return fn(ctx, chatID, user)
	}
}
