package models

// Settings represents application-wide settings persisted as key/value rows.
type Settings struct {
	AutoStartBreak     bool   `json:"auto_start_break"`     // start a break session automatically after a pomodoro
	DefaultPomodoroMin int    `json:"default_pomodoro_min"` // planned duration for new pomodoro sessions
	DefaultBreakMin    int    `json:"default_break_min"`    // planned duration for auto-started breaks
	Timezone           string `json:"timezone"`             // IANA timezone name, or "Local" for the system timezone
}
