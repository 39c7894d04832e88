package gm

import "github.com/kverlaine/questforge/internal/models"

// RemoteOutcome is the interpreted remote reply. The raw response sometimes
// carries a status field and sometimes only a suggestion, so it is parsed
// into an explicit sum type rather than presence-checked downstream.
type RemoteOutcome interface {
	outcome()
}

// Validated carries an accepted difficulty suggestion.
type Validated struct {
	Difficulty      models.Difficulty
	Confidence      float64
	Reasoning       string
	Recommendations []string
	XPPerPomodoro   int // 0 means keep the tier default
}

// Rejected means the remote declined to suggest a difficulty.
type Rejected struct {
	Reason string
}

func (Validated) outcome() {}
func (Rejected) outcome()  {}
