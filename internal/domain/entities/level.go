package entities

import (
	"fmt"
	"math"
)

// XP rewards per difficulty.
const (
	RewardEasy   = 10
	RewardMedium = 25
	RewardHard   = 50
)

// Reward returns the XP granted for completing a chore of difficulty d.
func Reward(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return RewardEasy
	case DifficultyHard:
		return RewardHard
	default:
		return RewardMedium
	}
}

// maxExactLevel bounds the levels whose requirement is computed in integers.
const maxExactLevel = 90000

// XPForLevel returns the XP needed to reach level from the level below it:
// floor(100 * level^1.5). The curve is strictly increasing.
func XPForLevel(level int) int {
	if level <= 0 {
		return 0
	}
	if level > maxExactLevel {
		return int(math.Floor(100 * float64(level) * math.Sqrt(float64(level))))
	}

	// floor(100 * L^1.5) == floor(sqrt(10000 * L^3)), computed exactly.
	n := 10000 * level * level * level
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// ApplyReward adds amount to xp and converts the surplus into levels.
// A single reward may produce several level-ups.
//
// The returned xp is always below XPForLevel(newLevel+1).
// Negative amounts or an out-of-range starting state are caller bugs and panic.
func ApplyReward(xp, level, amount int) (newXP, newLevel, levelsGained int) {
	if amount < 0 {
		panic(fmt.Sprintf("entities: negative xp reward %d", amount))
	}
	if xp < 0 || level < 1 {
		panic(fmt.Sprintf("entities: invalid progress state xp=%d level=%d", xp, level))
	}

	newXP = xp + amount
	newLevel = level

	for newXP >= XPForLevel(newLevel+1) {
		newXP -= XPForLevel(newLevel + 1)
		newLevel++
	}

	return newXP, newLevel, newLevel - level
}
