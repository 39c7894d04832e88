package storage

import (
	"errors"
	"time"

	"github.com/kverlaine/questforge/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Quests
	AddQuest(models.Quest) error
	GetQuest(id string) (models.Quest, error)
	GetQuestsForUser(userID string) ([]models.Quest, error)
	UpdateQuest(models.Quest) error
	DeleteQuest(id string) error
	RestoreQuest(id string) error

	// Sessions
	AddSession(models.Session) error
	GetSession(id string) (models.Session, error)
	UpdateSession(models.Session) error
	DeleteSession(id string) error
	// GetOpenSession returns the user's single active or paused session, or
	// ErrNotFound when none is in flight.
	GetOpenSession(userID string) (models.Session, error)
	GetSessionsForUserSince(userID string, since time.Time) ([]models.Session, error)
	GetSessionsForQuest(questID string) ([]models.Session, error)
	// CountCompletedPomodoros counts completed pomodoro sessions of at least
	// the cap-qualifying duration on the given day (YYYY-MM-DD, by start
	// time). An empty questID counts across all quests.
	CountCompletedPomodoros(userID, questID, day string) (int, error)

	// Users
	GetUser(id string) (models.UserProfile, error)
	PutUser(models.UserProfile) error

	// Sync queue
	EnqueueSyncOp(models.SyncOperation) error
	// NextSyncOps returns pending operations ordered by priority descending,
	// then FIFO by creation time. An empty collection matches everything.
	NextSyncOps(collection string, limit int) ([]models.SyncOperation, error)
	UpdateSyncOp(models.SyncOperation) error
	DeleteSyncOp(id string) error
	CountSyncOps() (int, error)

	// Dead letters
	AddDeadLetter(models.DeadLetter) error
	GetDeadLetters() ([]models.DeadLetter, error)
	CountDeadLetters() (int, error)
	ClearDeadLetters() error

	// Utils
	GetConfigPath() string
}
