package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// Handler answers the read-only bot commands.
type Handler struct {
	bot          Bot
	logger       *zap.Logger
	users        UserDirectory
	progress     ProgressReader
	achievements AchievementLister
}

func NewHandler(
	bot Bot,
	logger *zap.Logger,
	users UserDirectory,
	progress ProgressReader,
	achievements AchievementLister,
) *Handler {
	return &Handler{
		bot:          bot,
		logger:       logger,
		users:        users,
		progress:     progress,
		achievements: achievements,
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)
	defer h.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	chatID := update.Message.Chat.ID
	h.logger.Debug("command received",
		zap.Int64("chat_id", chatID),
		zap.String("command", update.Message.Command()),
	)

	switch update.Message.Command() {
	case "start", "help":
		h.send(newMessage(chatID, md(msgHelp)))
	case "progress":
		_ = h.withErrorHandling("progress", h.withMember(h.progressHandler))(ctx, chatID)
	case "achievements":
		_ = h.withErrorHandling("achievements", h.withMember(h.achievementsHandler))(ctx, chatID)
	default:
		h.send(newMessage(chatID, md(msgUnknownCommand)))
	}
}

func (h *Handler) progressHandler(ctx context.Context, chatID int64, user *entities.User) error {
	p, err := h.progress.GetProgress(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed to get progress", zap.String("user_id", user.ID), zap.Error(err))
		h.send(newMessage(chatID, md(msgProgressUnavailable)))
		return nil
	}

	h.send(newMessage(chatID, renderProgress(p)))
	return nil
}

func (h *Handler) achievementsHandler(ctx context.Context, chatID int64, user *entities.User) error {
	list, err := h.achievements.List(ctx, user.ID)
	if err != nil {
		return err
	}

	h.send(newMessage(chatID, renderAchievements(list)))
	return nil
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
	}
}
