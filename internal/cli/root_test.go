package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kverlaine/questforge/internal/config"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/storage"
)

func setupContext(t *testing.T) *Context {
	t.Helper()
	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "cli.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &Context{
		Config: config.Config{UserID: "u1"},
		Store:  store,
	}
}

func seedQuest(t *testing.T, ctx *Context, id, userID, title string) {
	t.Helper()
	now := time.Now().UTC()
	err := ctx.Store.AddQuest(models.Quest{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Type:      models.QuestTypeStandard,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to seed quest: %v", err)
	}
}

func TestFindQuest(t *testing.T) {
	ctx := setupContext(t)
	seedQuest(t, ctx, "aaa-111", "u1", "Write thesis chapter")
	seedQuest(t, ctx, "bbb-222", "u1", "Weekly review")
	seedQuest(t, ctx, "ccc-333", "u2", "Someone else's quest")

	t.Run("exact id", func(t *testing.T) {
		q, err := ctx.FindQuest("aaa-111")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Title != "Write thesis chapter" {
			t.Errorf("got %q", q.Title)
		}
	})

	t.Run("title prefix", func(t *testing.T) {
		q, err := ctx.FindQuest("weekly")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.ID != "bbb-222" {
			t.Errorf("got %q", q.ID)
		}
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		if _, err := ctx.FindQuest("w"); err == nil {
			t.Fatal("expected ambiguity error")
		}
	})

	t.Run("other user's quest hidden", func(t *testing.T) {
		if _, err := ctx.FindQuest("someone"); err == nil {
			t.Fatal("expected no match for another user's quest")
		}
	})

	t.Run("no match", func(t *testing.T) {
		if _, err := ctx.FindQuest("zzz"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestParseWeekdays(t *testing.T) {
	got, err := ParseWeekdays("mon, Wed,5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d: got %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := ParseWeekdays("mon,funday"); err == nil {
		t.Fatal("expected error for unknown day")
	}
	if _, err := ParseWeekdays("9"); err == nil {
		t.Fatal("expected error for out-of-range day number")
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" Hard ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != models.DifficultyHard {
		t.Errorf("got %v", d)
	}

	if _, err := ParseDifficulty("impossible"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFormatSchedule(t *testing.T) {
	custom := models.Schedule{
		Frequency:  models.FrequencyCustom,
		CustomDays: []time.Weekday{time.Monday, time.Friday},
	}
	if got := FormatSchedule(custom); !strings.Contains(got, "Mon") || !strings.Contains(got, "Fri") {
		t.Errorf("got %q", got)
	}
	if got := FormatSchedule(models.Schedule{Frequency: models.FrequencyDaily}); got != "daily" {
		t.Errorf("got %q", got)
	}
}
