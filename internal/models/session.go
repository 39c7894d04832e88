package models

import "time"

type SessionType string

const (
	SessionTypePomodoro  SessionType = "pomodoro"
	SessionTypeDeepFocus SessionType = "deep_focus"
	SessionTypeBreak     SessionType = "break"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// PauseEvent records one pause interval. Duration is filled in on resume.
type PauseEvent struct {
	At          time.Time `json:"at"`
	DurationSec int       `json:"duration_sec"`
	Automatic   bool      `json:"automatic"`
}

// Interruption is the scoring view of a pause.
type Interruption struct {
	At          time.Time `json:"at"`
	DurationSec int       `json:"duration_sec"`
}

// QualityFactors itemizes the quality score so the UI can explain it.
type QualityFactors struct {
	Completion   float64 `json:"completion"`
	Interruption float64 `json:"interruption"`
	Overtime     float64 `json:"overtime"`
	Consistency  float64 `json:"consistency"`
}

// Session is one focus interval against exactly one quest. Elapsed time is
// always derived from wall-clock anchors (StartTime, PausedAt,
// TotalPausedSec), never accumulated from ticks, so a suspended process
// resumes with a correct timer.
type Session struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	QuestID             string          `json:"quest_id"`
	SubtaskID           string          `json:"subtask_id,omitempty"`
	SessionType         SessionType     `json:"session_type"`
	Status              SessionStatus   `json:"status"`
	StartTime           time.Time       `json:"start_time"`
	EndTime             *time.Time      `json:"end_time,omitempty"`
	PlannedDurationMin  int             `json:"planned_duration_min"`
	ActualDurationMin   int             `json:"actual_duration_min"`
	PausedAt            *time.Time      `json:"paused_at,omitempty"`
	TotalPausedSec      int             `json:"total_paused_sec"`
	PauseEvents         []PauseEvent    `json:"pause_events,omitempty"`
	Interruptions       []Interruption  `json:"interruptions,omitempty"`
	QualityScore        int             `json:"quality_score"`
	QualityFactors      *QualityFactors `json:"quality_factors,omitempty"`
	XPEarned            int             `json:"xp_earned"`
	DeepFocusElapsedSec int             `json:"deep_focus_elapsed_sec"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Open reports whether the session is still in flight.
func (s *Session) Open() bool {
	return s.Status == SessionActive || s.Status == SessionPaused
}

// ElapsedActive returns the active (non-paused) time at the given instant.
func (s *Session) ElapsedActive(now time.Time) time.Duration {
	elapsed := now.Sub(s.StartTime) - time.Duration(s.TotalPausedSec)*time.Second
	if s.Status == SessionPaused && s.PausedAt != nil {
		elapsed -= now.Sub(*s.PausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns the countdown value for pomodoro/break sessions and zero
// once the planned duration has elapsed.
func (s *Session) Remaining(now time.Time) time.Duration {
	planned := time.Duration(s.PlannedDurationMin) * time.Minute
	rem := planned - s.ElapsedActive(now)
	if rem < 0 {
		return 0
	}
	return rem
}
