package entities

import "time"

// AchievementKind identifies the rule an achievement follows.
type AchievementKind string

// AchievementKindCompletionCount reaches its target after N qualifying completions.
const AchievementKindCompletionCount AchievementKind = "completion_count"

// Achievement is a user's progress towards one goal.
type Achievement struct {
	ID     string
	UserID string
	Code   string // catalog code, unique per user

	Kind       AchievementKind
	Difficulty Difficulty // optional filter; empty matches every difficulty

	Progress    int
	Target      int
	Completed   bool
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// Matches reports whether event counts towards the achievement.
func (a *Achievement) Matches(event CompletionEvent) bool {
	if a.Completed || a.Kind != AchievementKindCompletionCount {
		return false
	}
	return a.Difficulty == "" || a.Difficulty == event.Difficulty
}

// Advance counts one qualifying completion. It reports whether the
// achievement became completed by this call.
func (a *Achievement) Advance(now time.Time) bool {
	if a.Completed {
		return false
	}

	a.Progress++
	a.UpdatedAt = now

	if a.Progress >= a.Target {
		a.Completed = true
		a.CompletedAt = &now
		return true
	}

	return false
}
