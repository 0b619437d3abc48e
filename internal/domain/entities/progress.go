package entities

import "time"

// UserProgress is the per-user progression record.
type UserProgress struct {
	UserID string

	XP             int // XP accumulated towards the next level, always below XPForLevel(Level+1)
	Level          int // current level, starts at 1
	TotalCompleted int // number of applied completions

	CurrentStreak     int        // consecutive calendar days with a completion
	LongestStreak     int        // best streak ever reached, never below CurrentStreak
	LastCompletionDay *time.Time // calendar day of the latest completion (midnight UTC encoding)
	LastCompletionAt  *time.Time // high-water mark of completion timestamps

	Version   int64 // optimistic concurrency token, 0 for a record that was never stored
	UpdatedAt time.Time
}

// NewUserProgress returns the zero-value progression of a user without history.
func NewUserProgress(userID string) *UserProgress {
	return &UserProgress{
		UserID: userID,
		Level:  1,
	}
}

// CompletionResult describes what a single completion changed.
type CompletionResult struct {
	XPAwarded    int
	LevelsGained int
}

// ApplyCompletion folds one completion event into the record.
// Calendar days are evaluated in loc; now becomes UpdatedAt.
func (p *UserProgress) ApplyCompletion(event CompletionEvent, loc *time.Location, now time.Time) CompletionResult {
	reward := Reward(event.Difficulty)

	var gained int
	p.XP, p.Level, gained = ApplyReward(p.XP, p.Level, reward)

	today := CalendarDay(event.OccurredAt, loc)
	p.CurrentStreak, p.LongestStreak = UpdateStreak(p.LastCompletionDay, today, p.CurrentStreak, p.LongestStreak)

	// Late events never move the stored day or high-water mark backwards.
	if p.LastCompletionDay == nil || today.After(*p.LastCompletionDay) {
		p.LastCompletionDay = &today
	}
	if p.LastCompletionAt == nil || event.OccurredAt.After(*p.LastCompletionAt) {
		at := event.OccurredAt
		p.LastCompletionAt = &at
	}

	p.TotalCompleted++
	p.UpdatedAt = now

	return CompletionResult{XPAwarded: reward, LevelsGained: gained}
}

// XPToNextLevel returns how much XP is still missing for the next level.
func (p *UserProgress) XPToNextLevel() int {
	return XPForLevel(p.Level+1) - p.XP
}
