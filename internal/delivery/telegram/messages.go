// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// Plain texts, escaped when sent.
const (
	msgNotLinked           = "This chat is not linked to a household member yet. Link it in the ChoreQuest app first."
	msgProgressUnavailable = "Could not load your progress. Please try again later."
	msgInternalError       = "Something went wrong. Please try again later."
	msgUnknownCommand      = "Unknown command. Send /help to see what I can do."
	msgHelp                = "I keep you posted on your chores.\n\n" +
		"/progress - your level, XP and streak\n" +
		"/achievements - your achievements\n" +
		"/help - this message"
)

const progressBarLength = 20

// md escapes plain text for MarkdownV2.
func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

func bold(s string) string {
	return "*" + md(s) + "*"
}

// newMessage creates a message with MarkdownV2 parse mode.
func newMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	return msg
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func renderLevelUp(p entities.LevelUpPayload) string {
	var b strings.Builder
	b.WriteString("🎉 " + bold("Level up!") + "\n\n")
	b.WriteString(md(fmt.Sprintf("You reached level %d (was %d).", p.NewLevel, p.PreviousLevel)) + "\n")
	b.WriteString(md(fmt.Sprintf("%d XP to level %d.", p.XPToNext, p.NewLevel+1)))
	return b.String()
}

func renderDigest(p entities.DigestPayload, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	greeting := "Good morning!"
	if p.UserName != "" {
		greeting = fmt.Sprintf("Good morning, %s!", p.UserName)
	}

	var b strings.Builder
	b.WriteString("📋 " + bold("Today's chores") + "\n\n")
	b.WriteString(md(fmt.Sprintf("%s You have %s due today:", greeting, plural(p.Total, "chore", "chores"))) + "\n\n")

	for i, c := range p.Chores {
		line := fmt.Sprintf("%d. %s (%s, due %s)", i+1, c.Title, c.Difficulty, c.DueAt.In(loc).Format("15:04"))
		b.WriteString(md(line) + "\n")
	}

	if rest := p.Total - len(p.Chores); rest > 0 {
		b.WriteString(md(fmt.Sprintf("and %d more.", rest)) + "\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func renderPraise(p entities.PraisePayload) string {
	sender := p.SenderName
	if sender == "" {
		sender = "A housemate"
	}
	return "💌 " + bold(sender+" sent you praise") + "\n\n" + md(p.Message)
}

func renderProgress(p *entities.UserProgress) string {
	need := entities.XPForLevel(p.Level + 1)

	var b strings.Builder
	b.WriteString("📊 " + bold("Your progress") + "\n\n")
	b.WriteString(bold(fmt.Sprintf("Level %d", p.Level)) + "\n")
	b.WriteString(md(buildProgressBar(p.XP, need, progressBarLength)) + "\n")
	b.WriteString(md(fmt.Sprintf("XP: %d / %d", p.XP, need)) + "\n\n")
	b.WriteString(md(fmt.Sprintf("✅ Chores completed: %d", p.TotalCompleted)) + "\n")
	b.WriteString(md("🔥 Current streak: "+plural(p.CurrentStreak, "day", "days")) + "\n")
	b.WriteString(md("🏆 Longest streak: " + plural(p.LongestStreak, "day", "days")))
	return b.String()
}

func renderAchievements(list []*entities.Achievement) string {
	var b strings.Builder
	b.WriteString("🏅 " + bold("Achievements") + "\n\n")

	if len(list) == 0 {
		b.WriteString(md("No achievements yet. Complete a chore to get started!"))
		return b.String()
	}

	for _, a := range list {
		mark := "⬜"
		if a.Completed {
			mark = "✅"
		}
		b.WriteString(mark + " " + md(fmt.Sprintf("%s: %d/%d", a.Code, min(a.Progress, a.Target), a.Target)) + "\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// buildProgressBar creates a text progress bar.
func buildProgressBar(current, total, length int) string {
	if total <= 0 {
		return "[" + strings.Repeat("░", length) + "]"
	}

	filled := int(float64(current) / float64(total) * float64(length))
	filled = max(0, min(filled, length))

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", length-filled) + "]"
}
