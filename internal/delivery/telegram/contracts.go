package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// Sender sends Telegram messages. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is a Sender that also receives updates.
type Bot interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*entities.User, error)
	GetUserByChatID(ctx context.Context, chatID int64) (*entities.User, error)
}

type ProgressReader interface {
	GetProgress(ctx context.Context, userID string) (*entities.UserProgress, error)
}

type AchievementLister interface {
	List(ctx context.Context, userID string) ([]*entities.Achievement, error)
}
