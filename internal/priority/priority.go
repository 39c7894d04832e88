// Package priority ranks quests for "what should I work on next". The score
// is a pure function of the quest record and the current instant, so ranking
// is deterministic and free of side effects.
package priority

import (
	"sort"
	"time"

	"github.com/kverlaine/questforge/internal/models"
)

// Component weights. Due dates dominate, then cadence, then staleness, with a
// small nudge for simple checklist items.
const (
	weightDueUrgency = 0.4
	weightFrequency  = 0.3
	weightRecency    = 0.2
	weightTodoBoost  = 0.1
)

// Score computes the composite priority for a quest at the given instant.
func Score(quest models.Quest, now time.Time) float64 {
	return weightDueUrgency*dueUrgency(quest.DueDate, now) +
		weightFrequency*frequencyWeight(quest.Schedule.Frequency) +
		weightRecency*recencyScore(quest.Tracking.LastSessionAt, now) +
		weightTodoBoost*todoBoost(quest.Type)
}

// Sort orders quests by descending score. Ties keep their prior relative
// order.
func Sort(quests []models.Quest, now time.Time) {
	sort.SliceStable(quests, func(i, j int) bool {
		return Score(quests[i], now) > Score(quests[j], now)
	})
}

func dueUrgency(due *time.Time, now time.Time) float64 {
	if due == nil {
		return 0
	}
	remaining := due.Sub(now)
	switch {
	case remaining < 0:
		return 10
	case remaining < 24*time.Hour:
		return 9
	case remaining < 3*24*time.Hour:
		return 7
	case remaining < 7*24*time.Hour:
		return 5
	default:
		return 2
	}
}

func frequencyWeight(freq models.Frequency) float64 {
	switch freq {
	case models.FrequencyDaily:
		return 10
	case models.FrequencyWeekly:
		return 6
	case models.FrequencyCustom:
		return 4
	default:
		return 2
	}
}

func recencyScore(last *time.Time, now time.Time) float64 {
	if last == nil {
		return 0
	}
	idle := now.Sub(*last)
	switch {
	case idle > 7*24*time.Hour:
		return 10
	case idle > 3*24*time.Hour:
		return 7
	case idle > 24*time.Hour:
		return 4
	default:
		return 1
	}
}

func todoBoost(questType models.QuestType) float64 {
	if questType == models.QuestTypeTodo {
		return 3
	}
	return 0
}
