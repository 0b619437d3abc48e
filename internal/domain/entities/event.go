package entities

import (
	"strings"
	"time"
)

// ChoreStatus is the lifecycle status of a chore.
type ChoreStatus string

const (
	ChoreStatusPending   ChoreStatus = "pending"
	ChoreStatusCompleted ChoreStatus = "completed"
)

// ChoreTransition is an upstream notification carrying the before and after
// state of a chore record.
type ChoreTransition struct {
	ChoreID      string      `json:"chore_id"`
	HouseholdID  string      `json:"household_id"`
	AssignedTo   string      `json:"assigned_to"`
	Difficulty   string      `json:"difficulty"`
	BeforeStatus ChoreStatus `json:"before_status"`
	AfterStatus  ChoreStatus `json:"after_status"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

// CompletionEvent returns the completion described by the transition.
// The second value is false unless the chore moved from a non-completed
// status to completed and names an assignee.
func (t ChoreTransition) CompletionEvent() (CompletionEvent, bool) {
	if t.BeforeStatus == ChoreStatusCompleted || t.AfterStatus != ChoreStatusCompleted {
		return CompletionEvent{}, false
	}
	if strings.TrimSpace(t.ChoreID) == "" || strings.TrimSpace(t.AssignedTo) == "" {
		return CompletionEvent{}, false
	}

	return CompletionEvent{
		SubjectID:   t.ChoreID,
		UserID:      t.AssignedTo,
		HouseholdID: t.HouseholdID,
		Difficulty:  ParseDifficulty(t.Difficulty),
		OccurredAt:  t.OccurredAt,
	}, true
}

// CompletionEvent is one chore transitioning to completed.
// SubjectID is the idempotency key.
type CompletionEvent struct {
	SubjectID   string
	UserID      string
	HouseholdID string
	Difficulty  Difficulty
	OccurredAt  time.Time
}

// ProcessedMarker records that the completion of a subject has been applied.
type ProcessedMarker struct {
	SubjectID   string
	UserID      string
	ProcessedAt time.Time
}
