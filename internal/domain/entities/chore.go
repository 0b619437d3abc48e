package entities

import "time"

// Chore is a household task assigned to a user.
type Chore struct {
	ID          string
	HouseholdID string
	AssignedTo  string
	Title       string
	Difficulty  Difficulty
	Status      ChoreStatus
	DueAt       time.Time
}
