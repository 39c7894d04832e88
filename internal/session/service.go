// Package session owns the focus-session lifecycle: creation under daily
// caps, pause/resume bookkeeping, the pomodoro to deep-focus switch, and the
// completion path that scores quality, awards XP and updates the owning quest
// and user profile. All elapsed time is derived from wall-clock anchors so a
// suspended process resumes with correct timers.
package session

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/errors"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/storage"
	"github.com/kverlaine/questforge/internal/syncqueue"
)

// StreakCalculator updates the user's daily streak for an activity on the
// given day. Implemented by streak.Calculator.
type StreakCalculator interface {
	Update(current models.Streak, day string) models.Streak
}

// Service is the focus-session state machine.
type Service struct {
	store  storage.Provider
	queue  *syncqueue.Queue
	streak StreakCalculator
	locks  *UserLocks
	clock  Clock
	logger *log.Logger
}

func NewService(store storage.Provider, queue *syncqueue.Queue, streak StreakCalculator, locks *UserLocks, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		queue:  queue,
		streak: streak,
		locks:  locks,
		clock:  SystemClock(),
		logger: logger,
	}
}

// SetClock overrides the wall clock (tests).
func (s *Service) SetClock(clock Clock) {
	if clock != nil {
		s.clock = clock
	}
}

// Start creates a new session after enforcing the daily caps. A plannedMin of
// zero picks the configured default for the session type.
func (s *Service) Start(userID, questID, subtaskID string, sessionType models.SessionType, plannedMin int) (models.Session, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if _, err := s.store.GetOpenSession(userID); err == nil {
		return models.Session{}, errors.NewCoded(errors.CodeInvalidState, "another session is already active or paused")
	} else if !stderrors.Is(err, storage.ErrNotFound) {
		return models.Session{}, fmt.Errorf("failed to check for open session: %w", err)
	}

	quest, err := s.store.GetQuest(questID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return models.Session{}, errors.NewCoded(errors.CodeNotFound, "quest %s not found", questID)
		}
		return models.Session{}, fmt.Errorf("failed to load quest %s: %w", questID, err)
	}
	if quest.DeletedAt != nil {
		return models.Session{}, errors.NewCoded(errors.CodeNotFound, "quest %s not found", questID)
	}
	if quest.UserID != userID {
		return models.Session{}, errors.NewCoded(errors.CodeAccessDenied, "quest %s belongs to another user", questID)
	}
	if quest.Type == models.QuestTypeAnti {
		return models.Session{}, errors.NewCoded(errors.CodeInvalidState, "anti-quests track occurrences, not sessions")
	}

	now := s.clock.Now()

	// Caps count completed pomodoros only, but are enforced before any focus
	// session is created. Breaks are exempt.
	if sessionType != models.SessionTypeBreak {
		day := now.Format(constants.DateFormat)
		total, err := s.store.CountCompletedPomodoros(userID, "", day)
		if err != nil {
			return models.Session{}, fmt.Errorf("failed to count today's sessions: %w", err)
		}
		if total >= constants.DailySessionCap {
			return models.Session{}, errors.NewCoded(errors.CodeDailyCapReached, "you have completed %d sessions today, come back tomorrow", total)
		}
		perQuest, err := s.store.CountCompletedPomodoros(userID, questID, day)
		if err != nil {
			return models.Session{}, fmt.Errorf("failed to count today's sessions for quest: %w", err)
		}
		if perQuest >= constants.QuestDailySessionCap {
			return models.Session{}, errors.NewCoded(errors.CodeQuestCapReached, "this quest already has %d sessions today", perQuest)
		}
	}

	if plannedMin <= 0 {
		plannedMin = s.defaultDuration(sessionType, quest)
	}

	sess := models.Session{
		ID:                 uuid.NewString(),
		UserID:             userID,
		QuestID:            questID,
		SubtaskID:          subtaskID,
		SessionType:        sessionType,
		Status:             models.SessionActive,
		StartTime:          now,
		PlannedDurationMin: plannedMin,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.AddSession(sess); err != nil {
		return models.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}
	if err := s.queue.Enqueue(models.CollectionSessions, sess.ID, models.SyncOpCreate, constants.PriorityDefault, nil); err != nil {
		return models.Session{}, err
	}

	s.logf("session started", "session", sess.ID, "quest", questID, "type", sessionType, "planned_min", plannedMin)
	return sess, nil
}

func (s *Service) defaultDuration(sessionType models.SessionType, quest models.Quest) int {
	settings, err := s.store.GetSettings()
	if err != nil {
		settings = models.Settings{DefaultPomodoroMin: constants.DefaultPomodoroMin, DefaultBreakMin: constants.DefaultBreakMin}
	}
	switch sessionType {
	case models.SessionTypeDeepFocus:
		return constants.DeepFocusCapMin
	case models.SessionTypeBreak:
		if quest.Schedule.BreakDurationMin > 0 {
			return quest.Schedule.BreakDurationMin
		}
		return settings.DefaultBreakMin
	default:
		if quest.Schedule.SessionDurationMin > 0 {
			return quest.Schedule.SessionDurationMin
		}
		return settings.DefaultPomodoroMin
	}
}

// Pause suspends the open session, anchoring the pause start.
func (s *Service) Pause(userID string) (models.Session, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.open(userID)
	if err != nil {
		return models.Session{}, err
	}
	if sess.Status != models.SessionActive {
		return models.Session{}, errors.NewCoded(errors.CodeInvalidState, "session is %s, not active", sess.Status)
	}

	now := s.clock.Now()
	sess.Status = models.SessionPaused
	sess.PausedAt = &now
	sess.PauseEvents = append(sess.PauseEvents, models.PauseEvent{At: now})
	sess.UpdatedAt = now

	if err := s.store.UpdateSession(sess); err != nil {
		return models.Session{}, fmt.Errorf("failed to persist pause: %w", err)
	}
	return sess, nil
}

// Resume reactivates a paused session, folding the elapsed pause into the
// running total and logging it as an interruption.
func (s *Service) Resume(userID string) (models.Session, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.open(userID)
	if err != nil {
		return models.Session{}, err
	}
	if sess.Status != models.SessionPaused {
		return models.Session{}, errors.NewCoded(errors.CodeInvalidState, "session is %s, not paused", sess.Status)
	}

	now := s.clock.Now()
	foldPause(&sess, now)
	sess.Status = models.SessionActive
	sess.UpdatedAt = now

	if err := s.store.UpdateSession(sess); err != nil {
		return models.Session{}, fmt.Errorf("failed to persist resume: %w", err)
	}
	return sess, nil
}

// foldPause closes the open pause interval: adds its duration to the running
// total, fills in the pause event, and records an interruption.
func foldPause(sess *models.Session, now time.Time) {
	if sess.PausedAt == nil {
		return
	}
	pausedSec := int(now.Sub(*sess.PausedAt).Seconds())
	if pausedSec < 0 {
		pausedSec = 0
	}
	sess.TotalPausedSec += pausedSec
	if n := len(sess.PauseEvents); n > 0 && sess.PauseEvents[n-1].DurationSec == 0 {
		sess.PauseEvents[n-1].DurationSec = pausedSec
	}
	sess.Interruptions = append(sess.Interruptions, models.Interruption{At: *sess.PausedAt, DurationSec: pausedSec})
	sess.PausedAt = nil
}

// SwitchToDeepFocus converts the open pomodoro into a deep-focus session. If
// under two minutes of active time have elapsed, the pomodoro is discarded
// and a fresh deep-focus session is created instead, so trivially short
// sessions never inflate the session count.
func (s *Service) SwitchToDeepFocus(userID string) (models.Session, error) {
	unlock := s.locks.Lock(userID)

	sess, err := s.open(userID)
	if err != nil {
		unlock()
		return models.Session{}, err
	}
	if sess.SessionType != models.SessionTypePomodoro {
		unlock()
		return models.Session{}, errors.NewCoded(errors.CodeInvalidState, "only a pomodoro session can switch to deep focus")
	}

	now := s.clock.Now()
	elapsed := sess.ElapsedActive(now)

	if elapsed < constants.SwitchDiscardThresholdSec*time.Second {
		if err := s.store.DeleteSession(sess.ID); err != nil {
			unlock()
			return models.Session{}, fmt.Errorf("failed to discard short session: %w", err)
		}
		if err := s.queue.Enqueue(models.CollectionSessions, sess.ID, models.SyncOpDelete, constants.PriorityDefault, nil); err != nil {
			unlock()
			return models.Session{}, err
		}
		// Start re-acquires the user lock.
		unlock()
		return s.Start(userID, sess.QuestID, sess.SubtaskID, models.SessionTypeDeepFocus, constants.DeepFocusCapMin)
	}
	defer unlock()

	sess.SessionType = models.SessionTypeDeepFocus
	sess.DeepFocusElapsedSec = int(elapsed.Seconds())
	sess.PlannedDurationMin = constants.DeepFocusCapMin
	sess.UpdatedAt = now

	if err := s.store.UpdateSession(sess); err != nil {
		return models.Session{}, fmt.Errorf("failed to persist mode switch: %w", err)
	}
	s.logf("session switched to deep focus", "session", sess.ID, "carried_sec", sess.DeepFocusElapsedSec)
	return sess, nil
}

// CompleteResult reports everything the caller needs to react to a finished
// session: score, reward, level-ups, and whether a break should auto-start.
type CompleteResult struct {
	Session          models.Session
	Quality          int
	XPEarned         int
	QuestLeveledUp   bool
	QuestLevel       int
	UserLeveledUp    bool
	UserLevel        int
	AutoStartBreak   bool
	BreakDurationMin int
}

// Complete finishes the open session: scores it, awards XP, and updates the
// owning quest and the user profile. The session, quest and user writes plus
// the sync enqueues are staged as a unit of work; the first failure aborts
// and propagates rather than silently leaving partial state.
func (s *Service) Complete(userID string) (CompleteResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.open(userID)
	if err != nil {
		return CompleteResult{}, err
	}

	now := s.clock.Now()
	foldPause(&sess, now)
	elapsed := sess.ElapsedActive(now)

	sess.Status = models.SessionCompleted
	sess.EndTime = &now
	sess.ActualDurationMin = int(elapsed.Minutes())
	if sess.SessionType == models.SessionTypeDeepFocus {
		sess.DeepFocusElapsedSec = int(elapsed.Seconds())
	}
	sess.UpdatedAt = now

	if sess.SessionType == models.SessionTypeBreak {
		// Breaks carry no score or reward and touch no other record.
		if err := s.store.UpdateSession(sess); err != nil {
			return CompleteResult{}, fmt.Errorf("failed to persist completed break: %w", err)
		}
		return CompleteResult{Session: sess}, nil
	}

	quest, err := s.store.GetQuest(sess.QuestID)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("failed to load quest %s: %w", sess.QuestID, err)
	}
	user, err := s.store.GetUser(userID)
	if err != nil {
		if !stderrors.Is(err, storage.ErrNotFound) {
			return CompleteResult{}, fmt.Errorf("failed to load user %s: %w", userID, err)
		}
		user = models.UserProfile{ID: userID, CreatedAt: now}
	}

	quality, factors := QualityScore(sess.ActualDurationMin, sess.PlannedDurationMin, sess.TotalPausedSec, user.Streak.Current)
	sess.QualityScore = quality
	sess.QualityFactors = &factors
	sess.XPEarned = SessionXP(sess, quest, quality)

	questLevels := applyQuestXP(&quest.Gamification, sess.XPEarned)
	s.updateQuestTracking(&quest, sess, now)
	s.appendProgress(&quest, now, sess.XPEarned, questLevels)
	quest.UpdatedAt = now

	userLevels := applyUserXP(&user, sess.XPEarned)
	user.Streak = s.streak.Update(user.Streak, now.Format(constants.DateFormat))
	user.UpdatedAt = now

	var uow unitOfWork
	uow.add("session", func() error { return s.store.UpdateSession(sess) })
	uow.add("quest", func() error { return s.store.UpdateQuest(quest) })
	uow.add("user", func() error { return s.store.PutUser(user) })
	uow.add("sync", func() error {
		if err := s.queue.Enqueue(models.CollectionSessions, sess.ID, models.SyncOpUpdate, constants.PriorityDefault, nil); err != nil {
			return err
		}
		if err := s.queue.Enqueue(models.CollectionQuests, quest.ID, models.SyncOpUpdate, constants.PriorityDefault, nil); err != nil {
			return err
		}
		return s.queue.Enqueue(models.CollectionUsers, user.ID, models.SyncOpUpdate, constants.PriorityDefault, nil)
	})
	if err := uow.commit(); err != nil {
		return CompleteResult{}, err
	}

	result := CompleteResult{
		Session:        sess,
		Quality:        quality,
		XPEarned:       sess.XPEarned,
		QuestLeveledUp: questLevels > 0,
		QuestLevel:     quest.Gamification.Level,
		UserLeveledUp:  userLevels > 0,
		UserLevel:      user.Level,
	}

	if sess.SessionType == models.SessionTypePomodoro {
		settings, err := s.store.GetSettings()
		if err == nil && settings.AutoStartBreak {
			result.AutoStartBreak = true
			result.BreakDurationMin = quest.Schedule.BreakDurationMin
			if result.BreakDurationMin <= 0 {
				result.BreakDurationMin = settings.DefaultBreakMin
			}
		}
	}

	s.logf("session completed", "session", sess.ID, "quest", quest.ID,
		"quality", quality, "xp", sess.XPEarned, "quest_level_up", questLevels > 0)
	return result, nil
}

func (s *Service) updateQuestTracking(quest *models.Quest, sess models.Session, now time.Time) {
	t := &quest.Tracking
	prevCount := t.SessionCount
	t.TotalMinutes += sess.ActualDurationMin
	t.SessionCount++
	t.AvgQuality = (t.AvgQuality*float64(prevCount) + float64(sess.QualityScore)) / float64(t.SessionCount)
	t.LastSessionAt = &now
	t.Velocity = s.questVelocity(quest.ID, now) + 1 // this completion is not yet written
}

// questVelocity counts the quest's completed sessions in the trailing week.
func (s *Service) questVelocity(questID string, now time.Time) float64 {
	sessions, err := s.store.GetSessionsForQuest(questID)
	if err != nil {
		return 0
	}
	weekAgo := now.AddDate(0, 0, -7)
	count := 0
	for _, sess := range sessions {
		if sess.Status == models.SessionCompleted && sess.StartTime.After(weekAgo) {
			count++
		}
	}
	return float64(count)
}

func (s *Service) appendProgress(quest *models.Quest, now time.Time, xp, questLevels int) {
	day := now.Format(constants.DateFormat)
	milestone := ""
	if questLevels > 0 {
		milestone = milestoneFor(quest.Gamification.Level)
	}
	for i := range quest.ProgressHistory {
		if quest.ProgressHistory[i].Day == day {
			quest.ProgressHistory[i].Completed++
			quest.ProgressHistory[i].XPEarned += xp
			if milestone != "" {
				quest.ProgressHistory[i].Milestone = milestone
			}
			return
		}
	}
	quest.ProgressHistory = append(quest.ProgressHistory, models.ProgressEntry{
		Day:       day,
		Completed: 1,
		XPEarned:  xp,
		Milestone: milestone,
	})
}

// Abandon ends the open session without scoring or reward.
func (s *Service) Abandon(userID string) (models.Session, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.open(userID)
	if err != nil {
		return models.Session{}, err
	}

	now := s.clock.Now()
	foldPause(&sess, now)
	sess.Status = models.SessionAbandoned
	sess.EndTime = &now
	sess.ActualDurationMin = int(sess.ElapsedActive(now).Minutes())
	sess.UpdatedAt = now

	if err := s.store.UpdateSession(sess); err != nil {
		return models.Session{}, fmt.Errorf("failed to persist abandoned session: %w", err)
	}
	if err := s.queue.Enqueue(models.CollectionSessions, sess.ID, models.SyncOpUpdate, constants.PriorityDefault, nil); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// Current returns the open session, if any.
func (s *Service) Current(userID string) (models.Session, error) {
	return s.open(userID)
}

func (s *Service) open(userID string) (models.Session, error) {
	sess, err := s.store.GetOpenSession(userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return models.Session{}, errors.NewCoded(errors.CodeInvalidState, "no active or paused session")
		}
		return models.Session{}, fmt.Errorf("failed to load open session: %w", err)
	}
	return sess, nil
}

func (s *Service) logf(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, keyvals...)
	}
}
