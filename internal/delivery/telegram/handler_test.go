package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/infra/memory"
)

type progressFunc func(ctx context.Context, userID string) (*entities.UserProgress, error)

func (f progressFunc) GetProgress(ctx context.Context, userID string) (*entities.UserProgress, error) {
	return f(ctx, userID)
}

type achievementsFunc func(ctx context.Context, userID string) ([]*entities.Achievement, error)

func (f achievementsFunc) List(ctx context.Context, userID string) ([]*entities.Achievement, error) {
	return f(ctx, userID)
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd := text
	for i, r := range text {
		if r == ' ' {
			cmd = text[:i]
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func newTestHandler(bot *fakeBot, store *memory.Store, progress ProgressReader, achievements AchievementLister) *Handler {
	return NewHandler(bot, zap.NewNop(), store, progress, achievements)
}

func TestHandler_Commands(t *testing.T) {
	progress := &entities.UserProgress{UserID: "alice", XP: 140, Level: 1, TotalCompleted: 5, CurrentStreak: 1, LongestStreak: 3}
	list := []*entities.Achievement{{Code: "ten_chores", Progress: 5, Target: 10}}

	bot := &fakeBot{}
	h := newTestHandler(bot, usersFixture(),
		progressFunc(func(_ context.Context, userID string) (*entities.UserProgress, error) {
			require.Equal(t, "alice", userID)
			return progress, nil
		}),
		achievementsFunc(func(context.Context, string) ([]*entities.Achievement, error) { return list, nil }),
	)
	ctx := context.Background()

	h.handleUpdate(ctx, command(100, "/progress"))
	h.handleUpdate(ctx, command(100, "/achievements"))
	h.handleUpdate(ctx, command(100, "/help"))
	h.handleUpdate(ctx, command(100, "/dance"))
	h.handleUpdate(ctx, command(999, "/progress"))
	h.handleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 100}}})

	sent := bot.Sent()
	require.Len(t, sent, 5)
	assert.Equal(t, renderProgress(progress), sent[0].Text)
	assert.Equal(t, renderAchievements(list), sent[1].Text)
	assert.Equal(t, md(msgHelp), sent[2].Text)
	assert.Equal(t, md(msgUnknownCommand), sent[3].Text)
	assert.Equal(t, md(msgNotLinked), sent[4].Text)
	assert.Equal(t, int64(999), sent[4].ChatID)
}

func TestHandler_Failures(t *testing.T) {
	bot := &fakeBot{}
	h := newTestHandler(bot, usersFixture(),
		progressFunc(func(context.Context, string) (*entities.UserProgress, error) { return nil, errors.New("db down") }),
		achievementsFunc(func(context.Context, string) ([]*entities.Achievement, error) { return nil, errors.New("db down") }),
	)
	ctx := context.Background()

	h.handleUpdate(ctx, command(100, "/progress"))
	h.handleUpdate(ctx, command(100, "/achievements"))

	sent := bot.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, md(msgProgressUnavailable), sent[0].Text)
	assert.Equal(t, md(msgInternalError), sent[1].Text)
}

func TestHandler_RunStopsOnCancel(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update, 1)}
	h := newTestHandler(bot, usersFixture(), nil, nil)

	bot.updates <- command(100, "/help")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool { return len(bot.Sent()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler did not stop")
	}
}
