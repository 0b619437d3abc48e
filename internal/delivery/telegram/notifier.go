package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/common"
	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// Notifier delivers notification requests as Telegram messages.
type Notifier struct {
	sender Sender
	users  UserDirectory
	loc    *time.Location
	logger *zap.Logger
}

// NewNotifier creates a new Notifier. loc is used to display due times.
func NewNotifier(sender Sender, users UserDirectory, loc *time.Location, logger *zap.Logger) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{sender: sender, users: users, loc: loc, logger: logger}
}

// Notify implements service.Notifier. Users without a linked chat or with
// notifications disabled are skipped silently.
func (n *Notifier) Notify(ctx context.Context, req entities.NotificationRequest) error {
	log := n.logger.With(zap.String("user_id", req.UserID), zap.String("kind", string(req.Kind)))

	user, err := n.users.GetUser(ctx, req.UserID)
	if errors.Is(err, common.ErrNotFound) {
		log.Debug("notification skipped: unknown user")
		return nil
	}
	if err != nil {
		log.Error("failed to resolve notification recipient", zap.Error(err))
		return fmt.Errorf("get user: %w", err)
	}
	if !user.CanReceiveMessages() {
		log.Debug("notification skipped: user cannot receive messages")
		return nil
	}

	text, err := n.render(req)
	if err != nil {
		log.Error("failed to render notification", zap.Error(err))
		return err
	}

	if _, err := n.sender.Send(newMessage(user.ChatID, text)); err != nil {
		log.Error("failed to send telegram message", zap.Int64("chat_id", user.ChatID), zap.Error(err))
		return fmt.Errorf("send telegram message: %w", err)
	}

	log.Debug("notification sent", zap.Int64("chat_id", user.ChatID))
	return nil
}

func (n *Notifier) render(req entities.NotificationRequest) (string, error) {
	switch p := req.Payload.(type) {
	case entities.LevelUpPayload:
		return renderLevelUp(p), nil
	case entities.DigestPayload:
		return renderDigest(p, n.loc), nil
	case entities.PraisePayload:
		return renderPraise(p), nil
	default:
		return "", fmt.Errorf("unsupported notification %s with payload %T", req.Kind, req.Payload)
	}
}

// LogNotifier only logs notifications. It is used when no bot token is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements service.Notifier.
func (n *LogNotifier) Notify(_ context.Context, req entities.NotificationRequest) error {
	n.logger.Info("notification",
		zap.String("user_id", req.UserID),
		zap.String("kind", string(req.Kind)),
		zap.Any("payload", req.Payload),
	)
	return nil
}
