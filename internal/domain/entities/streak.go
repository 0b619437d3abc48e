package entities

import "time"

// CalendarDay returns the calendar date of t as observed in loc,
// encoded as midnight UTC so that dates compare and subtract exactly.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Both values must come from CalendarDay.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// UpdateStreak advances the consecutive-day counters for a completion on today.
//
// Rules, in order:
//  1. no previous completion starts a streak of 1;
//  2. a completion on the same day keeps the streak;
//  3. a completion exactly one day later extends it by one;
//  4. any larger gap restarts it at 1.
//
// A completion dated before last arrived out of order and leaves the streak as is.
func UpdateStreak(last *time.Time, today time.Time, current, longest int) (newStreak, newLongest int) {
	if last == nil {
		return 1, max(longest, 1)
	}

	switch diff := DaysBetween(*last, today); {
	case diff <= 0:
		newStreak = current
	case diff == 1:
		newStreak = current + 1
	default:
		newStreak = 1
	}

	return newStreak, max(longest, newStreak)
}
