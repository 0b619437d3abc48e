package telegram

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRenderGolden(t *testing.T) {
	seoul := time.FixedZone("UTC+09:00", 9*3600)
	due := func(h, m int) time.Time { return time.Date(2026, 5, 6, h-9, m, 0, 0, time.UTC) }
	completedAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := map[string]string{
		"level_up": renderLevelUp(entities.LevelUpPayload{PreviousLevel: 1, NewLevel: 2, XP: 38, XPToNext: 481}),
		"digest": renderDigest(entities.DigestPayload{
			UserName: "Alice",
			Total:    2,
			Chores: []entities.Chore{
				{Title: "Take out trash", Difficulty: entities.DifficultyEasy, DueAt: due(9, 30)},
				{Title: "Clean bathroom", Difficulty: entities.DifficultyHard, DueAt: due(18, 0)},
			},
		}, seoul),
		"digest_overflow": renderDigest(entities.DigestPayload{
			Total: 7,
			Chores: []entities.Chore{
				{Title: "Dishes", Difficulty: entities.DifficultyMedium, DueAt: due(12, 5)},
			},
		}, seoul),
		"praise":         renderPraise(entities.PraisePayload{SenderName: "Bob", Message: "Great job on the dishes!"}),
		"praise_unnamed": renderPraise(entities.PraisePayload{Message: "Thanks (really)."}),
		"progress": renderProgress(&entities.UserProgress{
			UserID: "u1", XP: 140, Level: 1, TotalCompleted: 5, CurrentStreak: 1, LongestStreak: 3,
		}),
		"achievements": renderAchievements([]*entities.Achievement{
			{Code: "first_chore", Progress: 1, Target: 1, Completed: true, CompletedAt: &completedAt},
			{Code: "ten_chores", Progress: 5, Target: 10},
		}),
		"achievements_empty": renderAchievements(nil),
	}

	g := newGolden(t)
	for name, got := range tests {
		t.Run(name, func(t *testing.T) {
			g.Assert(t, name, []byte(got))
		})
	}
}

func TestBuildProgressBar(t *testing.T) {
	assert.Equal(t, "[░░░░]", buildProgressBar(0, 100, 4))
	assert.Equal(t, "[██░░]", buildProgressBar(50, 100, 4))
	assert.Equal(t, "[████]", buildProgressBar(150, 100, 4))
	assert.Equal(t, "[░░░░]", buildProgressBar(10, 0, 4))
}

func TestMarkdownEscaping(t *testing.T) {
	assert.Equal(t, `a\_b \(c\)\.`, md("a_b (c)."))
	assert.Equal(t, `*Level up\!*`, bold("Level up!"))
}
