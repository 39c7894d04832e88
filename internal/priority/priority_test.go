package priority

import (
	"math"
	"testing"
	"time"

	"github.com/kverlaine/questforge/internal/models"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func questAt(due *time.Time, freq models.Frequency, last *time.Time, questType models.QuestType) models.Quest {
	return models.Quest{
		Type:     questType,
		DueDate:  due,
		Schedule: models.Schedule{Frequency: freq},
		Tracking: models.Tracking{LastSessionAt: last},
	}
}

func ts(t time.Time) *time.Time { return &t }

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		quest models.Quest
		want  float64
	}{
		{
			name:  "bare quest scores only the frequency floor",
			quest: questAt(nil, models.Frequency(""), nil, models.QuestTypeStandard),
			want:  0.3 * 2,
		},
		{
			name:  "overdue daily quest never worked",
			quest: questAt(ts(now.Add(-time.Hour)), models.FrequencyDaily, nil, models.QuestTypeStandard),
			want:  0.4*10 + 0.3*10,
		},
		{
			name:  "due tomorrow",
			quest: questAt(ts(now.Add(20*time.Hour)), models.FrequencyWeekly, nil, models.QuestTypeStandard),
			want:  0.4*9 + 0.3*6,
		},
		{
			name:  "due within three days",
			quest: questAt(ts(now.Add(2*24*time.Hour)), models.FrequencyCustom, nil, models.QuestTypeStandard),
			want:  0.4*7 + 0.3*4,
		},
		{
			name:  "due within the week",
			quest: questAt(ts(now.Add(5*24*time.Hour)), models.FrequencyDaily, nil, models.QuestTypeStandard),
			want:  0.4*5 + 0.3*10,
		},
		{
			name:  "distant due date",
			quest: questAt(ts(now.Add(30*24*time.Hour)), models.FrequencyDaily, nil, models.QuestTypeStandard),
			want:  0.4*2 + 0.3*10,
		},
		{
			name:  "stale quest gains recency",
			quest: questAt(nil, models.FrequencyDaily, ts(now.Add(-8*24*time.Hour)), models.QuestTypeStandard),
			want:  0.3*10 + 0.2*10,
		},
		{
			name:  "worked this morning barely registers",
			quest: questAt(nil, models.FrequencyDaily, ts(now.Add(-2*time.Hour)), models.QuestTypeStandard),
			want:  0.3*10 + 0.2*1,
		},
		{
			name:  "todo gets the flat boost",
			quest: questAt(nil, models.FrequencyCustom, nil, models.QuestTypeTodo),
			want:  0.3*4 + 0.1*3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.quest, now)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	quest := questAt(ts(now.Add(12*time.Hour)), models.FrequencyDaily, ts(now.Add(-4*24*time.Hour)), models.QuestTypeTodo)
	first := Score(quest, now)
	for i := 0; i < 100; i++ {
		if got := Score(quest, now); got != first {
			t.Fatalf("Score() varied between calls: %v vs %v", got, first)
		}
	}
}

func TestSortDescendingAndStable(t *testing.T) {
	overdue := questAt(ts(now.Add(-time.Hour)), models.FrequencyDaily, nil, models.QuestTypeStandard)
	overdue.ID = "overdue"
	quiet := questAt(nil, models.Frequency(""), nil, models.QuestTypeStandard)
	quiet.ID = "quiet"
	tieA := questAt(nil, models.FrequencyWeekly, nil, models.QuestTypeStandard)
	tieA.ID = "tie-a"
	tieB := questAt(nil, models.FrequencyWeekly, nil, models.QuestTypeStandard)
	tieB.ID = "tie-b"

	quests := []models.Quest{quiet, tieA, tieB, overdue}
	Sort(quests, now)

	wantOrder := []string{"overdue", "tie-a", "tie-b", "quiet"}
	for i, want := range wantOrder {
		if quests[i].ID != want {
			t.Fatalf("order[%d] = %s, want %s (full order %v)", i, quests[i].ID, want, ids(quests))
		}
	}
}

func ids(quests []models.Quest) []string {
	out := make([]string, len(quests))
	for i, q := range quests {
		out[i] = q.ID
	}
	return out
}
