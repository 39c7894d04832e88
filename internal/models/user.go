package models

import "time"

// Streak is the user's daily-activity streak.
type Streak struct {
	Current          int    `json:"current"`
	Longest          int    `json:"longest"`
	LastActivityDate string `json:"last_activity_date,omitempty"` // YYYY-MM-DD
}

// UserProfile is global identity: total level and cumulative XP across all
// quests. Quest-local gamification lives on the quest record.
type UserProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Level     int       `json:"level"`
	TotalXP   int       `json:"total_xp"`
	Streak    Streak    `json:"streak"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
