package anti

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kverlaine/questforge/internal/errors"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/session"
	"github.com/kverlaine/questforge/internal/storage"
	"github.com/kverlaine/questforge/internal/syncqueue"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func setupService(t *testing.T) (*Service, storage.Provider, *fakeClock) {
	t.Helper()
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "anti.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc := NewService(store, syncqueue.NewQueue(store), session.NewUserLocks(), nil)
	svc.SetClock(clock)
	return svc, store, clock
}

func seedAntiQuest(t *testing.T, store storage.Provider, severity *models.Severity) models.Quest {
	t.Helper()
	quest := models.Quest{
		ID:       "aq1",
		UserID:   "user-1",
		Title:    "Doomscrolling",
		Type:     models.QuestTypeAnti,
		Severity: severity,
	}
	if err := store.AddQuest(quest); err != nil {
		t.Fatalf("failed to seed anti-quest: %v", err)
	}
	return quest
}

func seedUser(t *testing.T, store storage.Provider, totalXP int) {
	t.Helper()
	if err := store.PutUser(models.UserProfile{ID: "user-1", TotalXP: totalXP}); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func TestLogOccurrenceFloorsPenaltyAndLocksSeverity(t *testing.T) {
	svc, store, _ := setupService(t)
	seedAntiQuest(t, store, &models.Severity{UserAssigned: models.DifficultyMedium, XPPenaltyPerEvent: 50})
	seedUser(t, store, 30)

	quest, err := svc.LogOccurrence("user-1", "aq1", time.Time{}, "late night")
	if err != nil {
		t.Fatalf("LogOccurrence() failed: %v", err)
	}

	if len(quest.AntiEvents) != 1 {
		t.Fatalf("got %d events, want 1", len(quest.AntiEvents))
	}
	event := quest.AntiEvents[0]
	if event.NominalPenalty != 50 {
		t.Errorf("NominalPenalty = %d, want 50", event.NominalPenalty)
	}
	if event.ActualPenalty != 30 {
		t.Errorf("ActualPenalty = %d, want 30 (floored at the user's XP)", event.ActualPenalty)
	}

	if !quest.Severity.IsLocked || quest.Severity.LockedAt == nil {
		t.Error("first occurrence did not lock the severity")
	}

	user, _ := store.GetUser("user-1")
	if user.TotalXP != 0 {
		t.Errorf("user TotalXP = %d, want 0, never negative", user.TotalXP)
	}
	if quest.AntiTracking == nil || quest.AntiTracking.TotalXPLost != 30 {
		t.Errorf("tracking = %+v, want 30 total XP lost", quest.AntiTracking)
	}
}

func TestLogOccurrenceTimestampWindow(t *testing.T) {
	svc, store, clock := setupService(t)
	seedAntiQuest(t, store, &models.Severity{UserAssigned: models.DifficultyEasy})
	seedUser(t, store, 1000)

	_, err := svc.LogOccurrence("user-1", "aq1", clock.now.Add(time.Hour), "")
	if !errors.IsCode(err, errors.CodeTimestampOutOfRange) {
		t.Errorf("future timestamp error = %v, want TIMESTAMP_OUT_OF_RANGE", err)
	}

	_, err = svc.LogOccurrence("user-1", "aq1", clock.now.AddDate(0, 0, -31), "")
	if !errors.IsCode(err, errors.CodeTimestampOutOfRange) {
		t.Errorf("stale timestamp error = %v, want TIMESTAMP_OUT_OF_RANGE", err)
	}

	if _, err := svc.LogOccurrence("user-1", "aq1", clock.now.AddDate(0, 0, -29), ""); err != nil {
		t.Errorf("in-window occurrence failed: %v", err)
	}
}

func TestLogOccurrenceRejectsNonAntiQuest(t *testing.T) {
	svc, store, _ := setupService(t)
	if err := store.AddQuest(models.Quest{ID: "std", UserID: "user-1", Type: models.QuestTypeStandard}); err != nil {
		t.Fatalf("failed to seed quest: %v", err)
	}

	_, err := svc.LogOccurrence("user-1", "std", time.Time{}, "")
	if !errors.IsCode(err, errors.CodeInvalidState) {
		t.Errorf("error = %v, want INVALID_STATE", err)
	}

	_, err = svc.LogOccurrence("user-2", "std", time.Time{}, "")
	if !errors.IsCode(err, errors.CodeAccessDenied) {
		t.Errorf("foreign quest error = %v, want ACCESS_DENIED", err)
	}
}

func TestUpdateSeverityLock(t *testing.T) {
	svc, store, _ := setupService(t)
	seedAntiQuest(t, store, &models.Severity{UserAssigned: models.DifficultyEasy})
	seedUser(t, store, 1000)

	// Severity is still editable before any occurrence.
	quest, err := svc.UpdateSeverity("user-1", "aq1", models.DifficultyHard, 0)
	if err != nil {
		t.Fatalf("UpdateSeverity() failed: %v", err)
	}
	if quest.Severity.UserAssigned != models.DifficultyHard || quest.Severity.XPPenaltyPerEvent != 75 {
		t.Errorf("severity = %+v, want hard with the default 75 penalty", quest.Severity)
	}

	if _, err := svc.LogOccurrence("user-1", "aq1", time.Time{}, ""); err != nil {
		t.Fatalf("LogOccurrence() failed: %v", err)
	}

	_, err = svc.UpdateSeverity("user-1", "aq1", models.DifficultyEasy, 0)
	if !errors.IsCode(err, errors.CodeSeverityLocked) {
		t.Errorf("post-lock error = %v, want SEVERITY_LOCKED", err)
	}
}

func TestTrackingAggregates(t *testing.T) {
	svc, store, clock := setupService(t)
	seedAntiQuest(t, store, &models.Severity{UserAssigned: models.DifficultyTrivial, XPPenaltyPerEvent: 10})
	seedUser(t, store, 1000)

	if _, err := svc.LogOccurrence("user-1", "aq1", clock.now.AddDate(0, 0, -20), ""); err != nil {
		t.Fatalf("LogOccurrence() failed: %v", err)
	}
	if _, err := svc.LogOccurrence("user-1", "aq1", clock.now.AddDate(0, 0, -5), ""); err != nil {
		t.Fatalf("LogOccurrence() failed: %v", err)
	}
	quest, err := svc.LogOccurrence("user-1", "aq1", clock.now, "today")
	if err != nil {
		t.Fatalf("LogOccurrence() failed: %v", err)
	}

	tr := quest.AntiTracking
	if tr.CountToday != 1 {
		t.Errorf("CountToday = %d, want 1", tr.CountToday)
	}
	if tr.CountWeek != 2 {
		t.Errorf("CountWeek = %d, want 2", tr.CountWeek)
	}
	if tr.CountMonth != 3 {
		t.Errorf("CountMonth = %d, want 3", tr.CountMonth)
	}
	if tr.CurrentGapDays != 0 {
		t.Errorf("CurrentGapDays = %d, want 0", tr.CurrentGapDays)
	}
	if tr.LongestGapDays != 15 {
		t.Errorf("LongestGapDays = %d, want 15", tr.LongestGapDays)
	}
	if tr.TotalXPLost != 30 {
		t.Errorf("TotalXPLost = %d, want 30", tr.TotalXPLost)
	}
}
