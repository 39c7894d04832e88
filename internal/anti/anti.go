// Package anti tracks negative behaviors. An anti-quest has no sessions;
// logging an occurrence deducts XP instead of awarding it, and the first
// occurrence permanently locks the chosen severity so the penalty cannot be
// softened after the fact.
package anti

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/errors"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/session"
	"github.com/kverlaine/questforge/internal/storage"
	"github.com/kverlaine/questforge/internal/syncqueue"
)

// occurrenceWindow bounds how far back an occurrence may be logged.
const occurrenceWindow = 30 * 24 * time.Hour

// penaltyByTier is the default XP penalty per occurrence for each severity
// tier, used when the quest does not carry an explicit override.
var penaltyByTier = map[models.Difficulty]int{
	models.DifficultyTrivial: 10,
	models.DifficultyEasy:    25,
	models.DifficultyMedium:  50,
	models.DifficultyHard:    75,
	models.DifficultyEpic:    100,
}

// PenaltyForTier returns the default per-event penalty for a severity tier.
func PenaltyForTier(tier models.Difficulty) int {
	if p, ok := penaltyByTier[tier]; ok {
		return p
	}
	return penaltyByTier[models.DifficultyMedium]
}

// Service owns anti-quest occurrences and severity changes. It shares the
// per-user locks with the session service since both mutate the user profile.
type Service struct {
	store  storage.Provider
	queue  *syncqueue.Queue
	locks  *session.UserLocks
	clock  session.Clock
	logger *log.Logger
}

func NewService(store storage.Provider, queue *syncqueue.Queue, locks *session.UserLocks, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		queue:  queue,
		locks:  locks,
		clock:  session.SystemClock(),
		logger: logger,
	}
}

// SetClock overrides the wall clock (tests).
func (s *Service) SetClock(clock session.Clock) {
	if clock != nil {
		s.clock = clock
	}
}

// LogOccurrence records one occurrence of the behavior at the given instant
// (zero means now). The actual penalty is floored so the user's XP never goes
// negative, and the first occurrence locks the severity.
func (s *Service) LogOccurrence(userID, questID string, at time.Time, notes string) (models.Quest, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	quest, err := s.antiQuest(userID, questID)
	if err != nil {
		return models.Quest{}, err
	}

	now := s.clock.Now()
	if at.IsZero() {
		at = now
	}
	if at.After(now) || now.Sub(at) > occurrenceWindow {
		return models.Quest{}, errors.NewCoded(errors.CodeTimestampOutOfRange, "occurrence must fall within the trailing 30 days")
	}

	if quest.Severity == nil {
		quest.Severity = &models.Severity{UserAssigned: quest.Difficulty.UserAssigned}
	}
	if quest.Severity.XPPenaltyPerEvent <= 0 {
		quest.Severity.XPPenaltyPerEvent = PenaltyForTier(quest.Severity.UserAssigned)
	}
	if !quest.Severity.IsLocked {
		quest.Severity.IsLocked = true
		quest.Severity.LockedAt = &now
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		if !stderrors.Is(err, storage.ErrNotFound) {
			return models.Quest{}, fmt.Errorf("failed to load user %s: %w", userID, err)
		}
		user = models.UserProfile{ID: userID, CreatedAt: now}
	}

	nominal := quest.Severity.XPPenaltyPerEvent
	actual := nominal
	if actual > user.TotalXP {
		actual = user.TotalXP
	}
	user.TotalXP -= actual
	user.UpdatedAt = now

	quest.AntiEvents = append(quest.AntiEvents, models.AntiEvent{
		At:             at,
		NominalPenalty: nominal,
		ActualPenalty:  actual,
		Notes:          notes,
	})
	quest.AntiTracking = recomputeTracking(quest.AntiEvents, now)
	quest.UpdatedAt = now

	if err := s.store.UpdateQuest(quest); err != nil {
		return models.Quest{}, fmt.Errorf("failed to persist occurrence: %w", err)
	}
	if err := s.store.PutUser(user); err != nil {
		return models.Quest{}, fmt.Errorf("failed to persist penalty: %w", err)
	}
	if err := s.queue.Enqueue(models.CollectionQuests, quest.ID, models.SyncOpUpdate, constants.PriorityDefault, nil); err != nil {
		return models.Quest{}, err
	}
	if err := s.queue.Enqueue(models.CollectionUsers, user.ID, models.SyncOpUpdate, constants.PriorityDefault, nil); err != nil {
		return models.Quest{}, err
	}

	s.logf("occurrence logged", "quest", quest.ID, "penalty", actual, "nominal", nominal)
	return quest, nil
}

// UpdateSeverity changes the severity tier. It fails once the first
// occurrence has locked the severity.
func (s *Service) UpdateSeverity(userID, questID string, tier models.Difficulty, penaltyPerEvent int) (models.Quest, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	quest, err := s.antiQuest(userID, questID)
	if err != nil {
		return models.Quest{}, err
	}
	if !tier.IsValid() {
		return models.Quest{}, errors.NewCoded(errors.CodeInvalidState, "unknown severity tier %q", tier)
	}
	if quest.Severity != nil && quest.Severity.IsLocked {
		return models.Quest{}, errors.NewCoded(errors.CodeSeverityLocked, "severity is locked after the first logged occurrence")
	}

	if penaltyPerEvent <= 0 {
		penaltyPerEvent = PenaltyForTier(tier)
	}
	quest.Severity = &models.Severity{UserAssigned: tier, XPPenaltyPerEvent: penaltyPerEvent}
	quest.UpdatedAt = s.clock.Now()

	if err := s.store.UpdateQuest(quest); err != nil {
		return models.Quest{}, fmt.Errorf("failed to persist severity: %w", err)
	}
	if err := s.queue.Enqueue(models.CollectionQuests, quest.ID, models.SyncOpUpdate, constants.PriorityDefault, nil); err != nil {
		return models.Quest{}, err
	}
	return quest, nil
}

func (s *Service) antiQuest(userID, questID string) (models.Quest, error) {
	quest, err := s.store.GetQuest(questID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return models.Quest{}, errors.NewCoded(errors.CodeNotFound, "quest %s not found", questID)
		}
		return models.Quest{}, fmt.Errorf("failed to load quest %s: %w", questID, err)
	}
	if quest.DeletedAt != nil {
		return models.Quest{}, errors.NewCoded(errors.CodeNotFound, "quest %s not found", questID)
	}
	if quest.UserID != userID {
		return models.Quest{}, errors.NewCoded(errors.CodeAccessDenied, "quest %s belongs to another user", questID)
	}
	if quest.Type != models.QuestTypeAnti {
		return models.Quest{}, errors.NewCoded(errors.CodeInvalidState, "quest %s is not an anti-quest", questID)
	}
	return quest, nil
}

// recomputeTracking rebuilds the aggregate counters from the full event log.
func recomputeTracking(events []models.AntiEvent, now time.Time) *models.AntiTracking {
	t := &models.AntiTracking{}
	today := now.Format(constants.DateFormat)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	var last time.Time
	for i, e := range events {
		if e.At.Format(constants.DateFormat) == today {
			t.CountToday++
		}
		if e.At.After(weekAgo) {
			t.CountWeek++
		}
		if e.At.After(monthAgo) {
			t.CountMonth++
		}
		t.TotalXPLost += e.ActualPenalty

		if i > 0 {
			gap := int(e.At.Sub(last).Hours() / 24)
			if gap > t.LongestGapDays {
				t.LongestGapDays = gap
			}
		}
		if e.At.After(last) {
			last = e.At
		}
	}

	if !last.IsZero() {
		t.CurrentGapDays = int(now.Sub(last).Hours() / 24)
		if t.CurrentGapDays > t.LongestGapDays {
			t.LongestGapDays = t.CurrentGapDays
		}
	}
	return t
}

func (s *Service) logf(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, keyvals...)
	}
}
