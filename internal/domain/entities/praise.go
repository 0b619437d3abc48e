package entities

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPraiseLength is the longest accepted praise message, in characters.
const MaxPraiseLength = 500

var (
	ErrPraiseTargetRequired = errors.New("target user is required")
	ErrPraiseMessageEmpty   = errors.New("message is required")
	ErrPraiseMessageTooLong = errors.New("message exceeds 500 characters")
)

// PraiseRequest is a peer-to-peer encouragement message.
type PraiseRequest struct {
	SenderID     string `json:"-"`
	TargetUserID string `json:"target_user_id"`
	Message      string `json:"message"`
}

// Validate checks the request shape.
func (r PraiseRequest) Validate() error {
	if strings.TrimSpace(r.TargetUserID) == "" {
		return ErrPraiseTargetRequired
	}
	if strings.TrimSpace(r.Message) == "" {
		return ErrPraiseMessageEmpty
	}
	if utf8.RuneCountInString(r.Message) > MaxPraiseLength {
		return ErrPraiseMessageTooLong
	}
	return nil
}

// Praise is a delivered praise message kept for household statistics.
type Praise struct {
	ID           string
	HouseholdID  string
	SenderID     string
	SenderName   string
	TargetUserID string
	TargetName   string
	Message      string
	CreatedAt    time.Time
}
