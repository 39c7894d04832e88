package models

import "time"

type QuestType string

const (
	QuestTypeStandard QuestType = "standard"
	QuestTypeDungeon  QuestType = "dungeon"
	QuestTypeTodo     QuestType = "todo"
	QuestTypeAnti     QuestType = "anti"
)

type Difficulty string

const (
	DifficultyTrivial Difficulty = "trivial"
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyEpic    Difficulty = "epic"
)

// IsValid reports whether d is one of the known tiers.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyTrivial, DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyEpic:
		return true
	}
	return false
}

// Rank orders tiers from trivial (0) to epic (4). Unknown tiers rank as medium.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyTrivial:
		return 0
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	case DifficultyEpic:
		return 4
	}
	return 2
}

// DifficultyByRank is the inverse of Rank, clamped to the valid range.
func DifficultyByRank(rank int) Difficulty {
	tiers := []Difficulty{DifficultyTrivial, DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyEpic}
	if rank < 0 {
		rank = 0
	}
	if rank >= len(tiers) {
		rank = len(tiers) - 1
	}
	return tiers[rank]
}

type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationQueued    ValidationStatus = "queued"
	ValidationValidated ValidationStatus = "validated"
	ValidationFailed    ValidationStatus = "failed"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// DifficultyInfo carries the user-assigned tier plus the GM-validated result.
// Once IsLocked is set by a successful validation, GMValidated and
// XPPerPomodoro are authoritative until explicitly reset.
type DifficultyInfo struct {
	UserAssigned  Difficulty  `json:"user_assigned"`
	GMValidated   *Difficulty `json:"gm_validated,omitempty"`
	IsLocked      bool        `json:"is_locked"`
	Confidence    float64     `json:"confidence"`
	ValidatedAt   *time.Time  `json:"validated_at,omitempty"`
	XPPerPomodoro int         `json:"xp_per_pomodoro"`
}

// Effective returns the tier sessions should score against.
func (d DifficultyInfo) Effective() Difficulty {
	if d.IsLocked && d.GMValidated != nil {
		return *d.GMValidated
	}
	return d.UserAssigned
}

type Schedule struct {
	Frequency          Frequency      `json:"frequency"`
	CustomDays         []time.Weekday `json:"custom_days,omitempty"`
	SessionDurationMin int            `json:"session_duration_min"`
	BreakDurationMin   int            `json:"break_duration_min"`
}

// AlignedOn reports whether the schedule calls for work on the given day.
func (s Schedule) AlignedOn(day time.Time) bool {
	switch s.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		// A weekly quest aligns on any day; the bonus rewards working it at
		// all during the week.
		return true
	case FrequencyCustom:
		for _, wd := range s.CustomDays {
			if day.Weekday() == wd {
				return true
			}
		}
		return false
	}
	return false
}

type Subtask struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	EstimateUnits int        `json:"estimate_units"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Revision      int        `json:"revision"`
}

// Gamification is the quest-local level track, distinct from the user's
// global XP.
type Gamification struct {
	Level    int `json:"level"`
	XP       int `json:"xp"`
	XPToNext int `json:"xp_to_next"`
}

type ProgressEntry struct {
	Day       string `json:"day"` // YYYY-MM-DD
	Completed int    `json:"completed"`
	XPEarned  int    `json:"xp_earned"`
	Milestone string `json:"milestone,omitempty"`
}

type Tracking struct {
	TotalMinutes  int        `json:"total_minutes"`
	Velocity      float64    `json:"velocity"` // completed sessions per week
	AvgQuality    float64    `json:"avg_quality"`
	SessionCount  int        `json:"session_count"`
	LastSessionAt *time.Time `json:"last_session_at,omitempty"`
}

// GMFeedback is coaching output from a completed validation.
type GMFeedback struct {
	Reasoning       string    `json:"reasoning"`
	Recommendations []string  `json:"recommendations,omitempty"`
	Confidence      float64   `json:"confidence"`
	Source          string    `json:"source"` // "remote" or "local"
	CreatedAt       time.Time `json:"created_at"`
}

// Severity is the anti-quest penalty tier. The lock is one-way: it is set the
// instant the first occurrence is logged and the user-assigned tier becomes
// immutable afterwards.
type Severity struct {
	UserAssigned      Difficulty `json:"user_assigned"`
	XPPenaltyPerEvent int        `json:"xp_penalty_per_event"`
	IsLocked          bool       `json:"is_locked"`
	LockedAt          *time.Time `json:"locked_at,omitempty"`
}

type AntiEvent struct {
	At             time.Time `json:"at"`
	NominalPenalty int       `json:"nominal_penalty"`
	ActualPenalty  int       `json:"actual_penalty"`
	Notes          string    `json:"notes,omitempty"`
}

type AntiTracking struct {
	CountToday     int `json:"count_today"`
	CountWeek      int `json:"count_week"`
	CountMonth     int `json:"count_month"`
	CurrentGapDays int `json:"current_gap_days"`
	LongestGapDays int `json:"longest_gap_days"`
	TotalXPLost    int `json:"total_xp_lost"`
}

// Quest is a trackable unit of work. Anti-quests reuse the same record with
// Type == QuestTypeAnti; their Severity/AntiEvents/AntiTracking fields are nil
// for every other type.
type Quest struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Type             QuestType        `json:"type"`
	Difficulty       DifficultyInfo   `json:"difficulty"`
	Schedule         Schedule         `json:"schedule"`
	Subtasks         []Subtask        `json:"subtasks,omitempty"`
	Gamification     Gamification     `json:"gamification"`
	ProgressHistory  []ProgressEntry  `json:"progress_history,omitempty"`
	Tracking         Tracking         `json:"tracking"`
	GMFeedback       *GMFeedback      `json:"gm_feedback,omitempty"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	EstimatedHours   float64          `json:"estimated_hours"`

	Severity     *Severity     `json:"severity,omitempty"`
	AntiEvents   []AntiEvent   `json:"anti_events,omitempty"`
	AntiTracking *AntiTracking `json:"anti_tracking,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	DeletedAt *string   `json:"deleted_at,omitempty"` // RFC3339 timestamp
}
