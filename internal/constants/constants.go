package constants

const (
	// AppName is used for config paths and the keyring service name.
	AppName = "questforge"

	// DefaultKeyringUser is the keyring account under which the Postgres
	// connection string is stored.
	DefaultKeyringUser = "questforge-db"

	// KeyringAPITokenUser is the keyring account for the remote sync API token.
	KeyringAPITokenUser = "questforge-api"

	// DateFormat is the canonical day key (calendar-day bucketing for caps,
	// streaks and anti-quest counters).
	DateFormat = "2006-01-02"
)

// Session constants. The caps and floors are anti-abuse limits, not
// preferences, and are deliberately not configurable.
const (
	DefaultPomodoroMin  = 25
	DefaultBreakMin     = 5
	DeepFocusCapMin     = 120
	DeepFocusRate       = 0.8
	MinXPSessionMin     = 2
	MinCapSessionMin    = 5
	DailySessionCap     = 50
	QuestDailySessionCap = 20

	SwitchDiscardThresholdSec = 120
)

// Sync queue constants.
const (
	SyncMaxRetries        = 5
	SyncBatchSize         = 25
	ValidationBatchSize   = 10
	PriorityValidation    = 2
	PriorityDefault       = 0
	MaxPriority           = 10
	DefaultDrainIntervalMin = 5
)

// Gamification constants.
const (
	// QuestLevelBase is the coefficient of the quest level-up threshold
	// curve: 500 * 1.5^level.
	QuestLevelBase   = 500.0
	QuestLevelGrowth = 1.5

	// StreakBonusMaxDays caps the consistency bonus contribution.
	StreakBonusMaxDays = 30
)

// Settings keys and defaults (key/value settings table).
const (
	SettingAutoStartBreak     = "auto_start_break"
	SettingDefaultPomodoroMin = "default_pomodoro_min"
	SettingDefaultBreakMin    = "default_break_min"
	SettingTimezone           = "timezone"

	DefaultAutoStartBreak = true
	DefaultTimezone       = "Local"
)
