package gm

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/storage"
	"github.com/kverlaine/questforge/internal/syncqueue"
	"github.com/kverlaine/questforge/internal/transport"
)

type fakeRemote struct {
	calls int
	resp  transport.ValidationResponse
	err   error
}

func (f *fakeRemote) ValidateQuest(_ context.Context, _ transport.ValidationRequest) (transport.ValidationResponse, error) {
	f.calls++
	return f.resp, f.err
}

func setupService(t *testing.T, remote Remote) (*Service, storage.Provider, *syncqueue.Queue) {
	t.Helper()
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "gm.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	queue := syncqueue.NewQueue(store)
	svc := NewService(store, queue, remote, nil)
	return svc, store, queue
}

func seedQuest(t *testing.T, store storage.Provider, id string, tier models.Difficulty) models.Quest {
	t.Helper()
	quest := models.Quest{
		ID:     id,
		UserID: "user-1",
		Title:  "Write a parser",
		Type:   models.QuestTypeStandard,
		Difficulty: models.DifficultyInfo{
			UserAssigned:  tier,
			XPPerPomodoro: XPForTier(tier),
		},
		Schedule: models.Schedule{
			Frequency:          models.FrequencyDaily,
			SessionDurationMin: 25,
			BreakDurationMin:   5,
		},
		ValidationStatus: models.ValidationPending,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	if err := store.AddQuest(quest); err != nil {
		t.Fatalf("failed to seed quest: %v", err)
	}
	return quest
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestXPForTier(t *testing.T) {
	cases := map[models.Difficulty]int{
		models.DifficultyTrivial: 30,
		models.DifficultyEasy:    50,
		models.DifficultyMedium:  75,
		models.DifficultyHard:    100,
		models.DifficultyEpic:    120,
		models.Difficulty("??"):  75,
	}
	for tier, want := range cases {
		if got := XPForTier(tier); got != want {
			t.Errorf("XPForTier(%s) = %d, want %d", tier, got, want)
		}
	}
}

func TestClassifyRules(t *testing.T) {
	questWith := func(tier models.Difficulty, subtasks int, hours float64) models.Quest {
		q := models.Quest{
			Difficulty:     models.DifficultyInfo{UserAssigned: tier},
			EstimatedHours: hours,
		}
		for i := 0; i < subtasks; i++ {
			q.Subtasks = append(q.Subtasks, models.Subtask{ID: "s", Title: "t"})
		}
		return q
	}

	calm := Metrics{WeeklyVelocity: 5, MonthlyConsistency: 80, AvgSessionQuality: 60, BurnoutRisk: BurnoutLow}

	tests := []struct {
		name           string
		quest          models.Quest
		metrics        Metrics
		wantDifficulty models.Difficulty
		wantConfidence float64
	}{
		{
			name:           "no signals keeps user tier",
			quest:          questWith(models.DifficultyMedium, 3, 2),
			metrics:        calm,
			wantDifficulty: models.DifficultyMedium,
			wantConfidence: 0.5 * 0.9,
		},
		{
			name:           "low velocity high quality downgrades one rank",
			quest:          questWith(models.DifficultyMedium, 3, 2),
			metrics:        Metrics{WeeklyVelocity: 1, MonthlyConsistency: 80, AvgSessionQuality: 90, BurnoutRisk: BurnoutLow},
			wantDifficulty: models.DifficultyEasy,
			wantConfidence: (0.5 + 0.4) * 0.9,
		},
		{
			name:           "downgrade clamps at trivial",
			quest:          questWith(models.DifficultyTrivial, 3, 2),
			metrics:        Metrics{WeeklyVelocity: 1, MonthlyConsistency: 80, AvgSessionQuality: 90, BurnoutRisk: BurnoutLow},
			wantDifficulty: models.DifficultyTrivial,
			wantConfidence: (0.5 + 0.4) * 0.9,
		},
		{
			name:           "sprawling quest with weak consistency raises to hard",
			quest:          questWith(models.DifficultyEasy, 30, 12),
			metrics:        Metrics{WeeklyVelocity: 5, MonthlyConsistency: 40, AvgSessionQuality: 60, BurnoutRisk: BurnoutLow},
			wantDifficulty: models.DifficultyHard,
			wantConfidence: (0.5 + 0.3) * 0.9,
		},
		{
			name:           "high burnout caps at easy",
			quest:          questWith(models.DifficultyEpic, 3, 2),
			metrics:        Metrics{WeeklyVelocity: 5, MonthlyConsistency: 80, AvgSessionQuality: 60, BurnoutRisk: BurnoutHigh},
			wantDifficulty: models.DifficultyEasy,
			wantConfidence: (0.5 + 0.3) * 0.9,
		},
		{
			name:           "burnout does not raise a trivial quest",
			quest:          questWith(models.DifficultyTrivial, 3, 2),
			metrics:        Metrics{WeeklyVelocity: 5, MonthlyConsistency: 80, AvgSessionQuality: 60, BurnoutRisk: BurnoutCritical},
			wantDifficulty: models.DifficultyTrivial,
			wantConfidence: (0.5 + 0.3) * 0.9,
		},
		{
			name:           "burnout overrides under-scoped escalation",
			quest:          questWith(models.DifficultyEasy, 30, 12),
			metrics:        Metrics{WeeklyVelocity: 5, MonthlyConsistency: 40, AvgSessionQuality: 60, BurnoutRisk: BurnoutCritical},
			wantDifficulty: models.DifficultyEasy,
			wantConfidence: (0.5 + 0.3 + 0.3) * 0.9,
		},
		{
			name:           "confidence caps at one before scaling",
			quest:          questWith(models.DifficultyMedium, 30, 12),
			metrics:        Metrics{WeeklyVelocity: 1, MonthlyConsistency: 40, AvgSessionQuality: 90, BurnoutRisk: BurnoutCritical},
			wantDifficulty: models.DifficultyEasy,
			wantConfidence: 1.0 * 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.quest, tt.metrics)
			if got.Difficulty != tt.wantDifficulty {
				t.Errorf("Difficulty = %s, want %s", got.Difficulty, tt.wantDifficulty)
			}
			if !almostEqual(got.Confidence, tt.wantConfidence) {
				t.Errorf("Confidence = %.4f, want %.4f", got.Confidence, tt.wantConfidence)
			}
			if got.XPPerPomodoro != XPForTier(tt.wantDifficulty) {
				t.Errorf("XPPerPomodoro = %d, want %d", got.XPPerPomodoro, XPForTier(tt.wantDifficulty))
			}
		})
	}
}

func TestQueueValidationMarksQuestQueued(t *testing.T) {
	svc, store, queue := setupService(t, &fakeRemote{})
	quest := seedQuest(t, store, "q1", models.DifficultyMedium)

	if err := svc.QueueValidation(quest); err != nil {
		t.Fatalf("QueueValidation() failed: %v", err)
	}

	stored, err := store.GetQuest("q1")
	if err != nil {
		t.Fatalf("GetQuest() failed: %v", err)
	}
	if stored.ValidationStatus != models.ValidationQueued {
		t.Errorf("ValidationStatus = %s, want %s", stored.ValidationStatus, models.ValidationQueued)
	}

	ops, err := queue.Next(models.CollectionGMValidation, 10)
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d queued operations, want 1", len(ops))
	}
	if ops[0].Operation != models.SyncOpValidate {
		t.Errorf("Operation = %s, want %s", ops[0].Operation, models.SyncOpValidate)
	}

	// Re-queuing is allowed; the duplicate is resolved at processing time.
	if err := svc.QueueValidation(stored); err != nil {
		t.Fatalf("second QueueValidation() failed: %v", err)
	}
	ops, _ = queue.Next(models.CollectionGMValidation, 10)
	if len(ops) != 2 {
		t.Errorf("got %d queued operations after re-queue, want 2", len(ops))
	}
}

func TestProcessPendingQueueRemoteSuccess(t *testing.T) {
	remote := &fakeRemote{resp: transport.ValidationResponse{
		Status:              "validated",
		SuggestedDifficulty: "hard",
		Confidence:          0.92,
		Reasoning:           "scope is larger than the assigned tier",
		Recommendations:     []string{"split the final milestone"},
	}}
	svc, store, queue := setupService(t, remote)
	quest := seedQuest(t, store, "q1", models.DifficultyMedium)
	if err := svc.QueueValidation(quest); err != nil {
		t.Fatalf("QueueValidation() failed: %v", err)
	}

	if err := svc.ProcessPendingQueue(context.Background()); err != nil {
		t.Fatalf("ProcessPendingQueue() failed: %v", err)
	}

	stored, _ := store.GetQuest("q1")
	if stored.ValidationStatus != models.ValidationValidated {
		t.Fatalf("ValidationStatus = %s, want %s", stored.ValidationStatus, models.ValidationValidated)
	}
	if !stored.Difficulty.IsLocked || stored.Difficulty.GMValidated == nil {
		t.Fatal("difficulty not locked after validation")
	}
	if *stored.Difficulty.GMValidated != models.DifficultyHard {
		t.Errorf("GMValidated = %s, want hard", *stored.Difficulty.GMValidated)
	}
	if stored.Difficulty.XPPerPomodoro != 100 {
		t.Errorf("XPPerPomodoro = %d, want 100", stored.Difficulty.XPPerPomodoro)
	}
	if stored.GMFeedback == nil || stored.GMFeedback.Source != "remote" {
		t.Error("feedback source not recorded as remote")
	}

	ops, _ := queue.Next(models.CollectionGMValidation, 10)
	if len(ops) != 0 {
		t.Errorf("got %d operations after processing, want 0", len(ops))
	}
}

func TestProcessPendingQueueFallsBackOnRemoteError(t *testing.T) {
	remote := &fakeRemote{err: transport.ErrOffline}
	svc, store, queue := setupService(t, remote)
	quest := seedQuest(t, store, "q1", models.DifficultyMedium)
	if err := svc.QueueValidation(quest); err != nil {
		t.Fatalf("QueueValidation() failed: %v", err)
	}

	if err := svc.ProcessPendingQueue(context.Background()); err != nil {
		t.Fatalf("ProcessPendingQueue() failed: %v", err)
	}

	if remote.calls != 1 {
		t.Errorf("remote called %d times, want 1", remote.calls)
	}

	stored, _ := store.GetQuest("q1")
	if stored.ValidationStatus != models.ValidationValidated {
		t.Fatalf("ValidationStatus = %s, want %s", stored.ValidationStatus, models.ValidationValidated)
	}
	if stored.GMFeedback == nil || stored.GMFeedback.Source != "local" {
		t.Error("feedback source not recorded as local")
	}
	// No session history, so the heuristic keeps the user tier.
	if got := stored.Difficulty.Effective(); got != models.DifficultyMedium {
		t.Errorf("effective difficulty = %s, want medium", got)
	}

	ops, _ := queue.Next(models.CollectionGMValidation, 10)
	if len(ops) != 0 {
		t.Errorf("got %d operations after fallback, want 0", len(ops))
	}
}

func TestProcessPendingQueueFallsBackOnRejection(t *testing.T) {
	// A reply with no usable difficulty suggestion counts as a rejection.
	remote := &fakeRemote{resp: transport.ValidationResponse{Status: "ok", Reasoning: "insufficient context"}}
	svc, store, _ := setupService(t, remote)
	quest := seedQuest(t, store, "q1", models.DifficultyHard)
	if err := svc.QueueValidation(quest); err != nil {
		t.Fatalf("QueueValidation() failed: %v", err)
	}

	if err := svc.ProcessPendingQueue(context.Background()); err != nil {
		t.Fatalf("ProcessPendingQueue() failed: %v", err)
	}

	stored, _ := store.GetQuest("q1")
	if stored.ValidationStatus != models.ValidationValidated {
		t.Fatalf("ValidationStatus = %s, want %s", stored.ValidationStatus, models.ValidationValidated)
	}
	if stored.GMFeedback == nil || stored.GMFeedback.Source != "local" {
		t.Error("feedback source not recorded as local")
	}
}

func TestProcessPendingQueueDropsMissingQuest(t *testing.T) {
	remote := &fakeRemote{}
	svc, _, queue := setupService(t, remote)

	if err := queue.Enqueue(models.CollectionGMValidation, "gone", models.SyncOpValidate, 2, nil); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	if err := svc.ProcessPendingQueue(context.Background()); err != nil {
		t.Fatalf("ProcessPendingQueue() failed: %v", err)
	}

	if remote.calls != 0 {
		t.Errorf("remote called %d times for a deleted quest, want 0", remote.calls)
	}
	ops, _ := queue.Next(models.CollectionGMValidation, 10)
	if len(ops) != 0 {
		t.Errorf("got %d operations, want 0", len(ops))
	}
}

func TestProcessPendingQueueCompletesDuplicateForValidatedQuest(t *testing.T) {
	remote := &fakeRemote{resp: transport.ValidationResponse{SuggestedDifficulty: "easy", Confidence: 0.8}}
	svc, store, queue := setupService(t, remote)
	quest := seedQuest(t, store, "q1", models.DifficultyMedium)

	if err := svc.QueueValidation(quest); err != nil {
		t.Fatalf("QueueValidation() failed: %v", err)
	}
	stored, _ := store.GetQuest("q1")
	if err := svc.QueueValidation(stored); err != nil {
		t.Fatalf("second QueueValidation() failed: %v", err)
	}

	if err := svc.ProcessPendingQueue(context.Background()); err != nil {
		t.Fatalf("ProcessPendingQueue() failed: %v", err)
	}

	if remote.calls != 1 {
		t.Errorf("remote called %d times, want 1 (duplicate should complete without a call)", remote.calls)
	}
	ops, _ := queue.Next(models.CollectionGMValidation, 10)
	if len(ops) != 0 {
		t.Errorf("got %d operations, want 0", len(ops))
	}
}

func TestGatherMetrics(t *testing.T) {
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "metrics.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	end := now
	addSession := func(id string, daysAgo, minutes, quality int, status models.SessionStatus) {
		start := now.AddDate(0, 0, -daysAgo)
		s := models.Session{
			ID:                 id,
			UserID:             "user-1",
			QuestID:            "q1",
			SessionType:        models.SessionTypePomodoro,
			Status:             status,
			StartTime:          start,
			EndTime:            &end,
			PlannedDurationMin: 25,
			ActualDurationMin:  minutes,
			QualityScore:       quality,
			CreatedAt:          start,
			UpdatedAt:          start,
		}
		if err := store.AddSession(s); err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}
	}

	addSession("s1", 1, 25, 80, models.SessionCompleted)
	addSession("s2", 2, 30, 60, models.SessionCompleted)
	addSession("s3", 2, 25, 90, models.SessionAbandoned) // ignored
	addSession("s4", 12, 25, 70, models.SessionCompleted)

	m, err := GatherMetrics(store, "user-1", now)
	if err != nil {
		t.Fatalf("GatherMetrics() failed: %v", err)
	}

	if m.WeeklyVelocity != 2 {
		t.Errorf("WeeklyVelocity = %.0f, want 2", m.WeeklyVelocity)
	}
	if !almostEqual(m.AvgSessionQuality, 70) {
		t.Errorf("AvgSessionQuality = %.1f, want 70", m.AvgSessionQuality)
	}
	wantConsistency := 3.0 / 30.0 * 100.0
	if !almostEqual(m.MonthlyConsistency, wantConsistency) {
		t.Errorf("MonthlyConsistency = %.1f, want %.1f", m.MonthlyConsistency, wantConsistency)
	}
	if m.BurnoutRisk != BurnoutLow {
		t.Errorf("BurnoutRisk = %s, want %s", m.BurnoutRisk, BurnoutLow)
	}
}
