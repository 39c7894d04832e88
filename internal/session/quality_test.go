package session

import (
	"testing"
	"time"

	"github.com/kverlaine/questforge/internal/models"
)

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name       string
		actualMin  int
		plannedMin int
		pausedSec  int
		streakDays int
		want       int
	}{
		{
			name:       "single five minute pause on a full pomodoro",
			actualMin:  25,
			plannedMin: 25,
			pausedSec:  300,
			streakDays: 0,
			want:       80,
		},
		{
			name:       "clean full pomodoro",
			actualMin:  25,
			plannedMin: 25,
			want:       100,
		},
		{
			name:       "completion rate caps at 150 percent and score clamps to 100",
			actualMin:  60,
			plannedMin: 25,
			want:       100,
		},
		{
			name:       "interruption penalty caps at 50 points",
			actualMin:  25,
			plannedMin: 25,
			pausedSec:  3600,
			want:       50,
		},
		{
			name:       "heavy pauses on a short session clamp to zero",
			actualMin:  2,
			plannedMin: 25,
			pausedSec:  3600,
			want:       0,
		},
		{
			name:       "overtime bonus is proportional to overrun",
			actualMin:  30,
			plannedMin: 25,
			pausedSec:  1500, // 100% of planned, capped at 50
			want:       74,   // 120 - 50 + min(10, 20/5) = 74
		},
		{
			name:       "thirty day streak gives the full consistency bonus",
			actualMin:  20,
			plannedMin: 25,
			streakDays: 30,
			want:       90,
		},
		{
			name:       "streak bonus caps at ten points",
			actualMin:  20,
			plannedMin: 25,
			streakDays: 90,
			want:       90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, factors := QualityScore(tt.actualMin, tt.plannedMin, tt.pausedSec, tt.streakDays)
			if got != tt.want {
				t.Errorf("QualityScore() = %d, want %d (factors %+v)", got, tt.want, factors)
			}
			if got < 0 || got > 100 {
				t.Errorf("QualityScore() = %d, out of [0,100]", got)
			}
		})
	}
}

func questForXP(xpPerPomodoro int, questType models.QuestType, freq models.Frequency) models.Quest {
	return models.Quest{
		Type: questType,
		Difficulty: models.DifficultyInfo{
			UserAssigned:  models.DifficultyMedium,
			XPPerPomodoro: xpPerPomodoro,
		},
		Schedule: models.Schedule{Frequency: freq},
	}
}

func TestSessionXP(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session models.Session
		quest   models.Quest
		quality int
		want    int
	}{
		{
			name:    "pomodoro at full quality",
			session: models.Session{SessionType: models.SessionTypePomodoro, ActualDurationMin: 25, StartTime: start},
			quest:   questForXP(200, models.QuestTypeStandard, models.FrequencyCustom),
			quality: 80,
			want:    200,
		},
		{
			name:    "quality below fifty halves the reward",
			session: models.Session{SessionType: models.SessionTypePomodoro, ActualDurationMin: 25, StartTime: start},
			quest:   questForXP(75, models.QuestTypeStandard, models.FrequencyCustom),
			quality: 49,
			want:    37,
		},
		{
			name:    "alignment bonus",
			session: models.Session{SessionType: models.SessionTypePomodoro, ActualDurationMin: 25, StartTime: start},
			quest:   questForXP(100, models.QuestTypeStandard, models.FrequencyDaily),
			quality: 80,
			want:    110,
		},
		{
			name:    "dungeon bonus",
			session: models.Session{SessionType: models.SessionTypePomodoro, ActualDurationMin: 25, StartTime: start},
			quest:   questForXP(100, models.QuestTypeDungeon, models.FrequencyCustom),
			quality: 80,
			want:    150,
		},
		{
			name:    "alignment and dungeon bonuses stack multiplicatively",
			session: models.Session{SessionType: models.SessionTypePomodoro, ActualDurationMin: 25, StartTime: start},
			quest:   questForXP(100, models.QuestTypeDungeon, models.FrequencyDaily),
			quality: 80,
			want:    165,
		},
		{
			name:    "deep focus earns at the reduced rate",
			session: models.Session{SessionType: models.SessionTypeDeepFocus, ActualDurationMin: 50, StartTime: start},
			quest:   questForXP(100, models.QuestTypeStandard, models.FrequencyDaily),
			quality: 80,
			want:    160, // floor(50 * 100/25 * 0.8), no alignment bonus
		},
		{
			name:    "deep focus keeps the dungeon bonus",
			session: models.Session{SessionType: models.SessionTypeDeepFocus, ActualDurationMin: 50, StartTime: start},
			quest:   questForXP(100, models.QuestTypeDungeon, models.FrequencyCustom),
			quality: 80,
			want:    240,
		},
		{
			name:    "under two minutes earns nothing",
			session: models.Session{SessionType: models.SessionTypePomodoro, ActualDurationMin: 1, StartTime: start},
			quest:   questForXP(200, models.QuestTypeDungeon, models.FrequencyDaily),
			quality: 100,
			want:    0,
		},
		{
			name:    "breaks earn nothing",
			session: models.Session{SessionType: models.SessionTypeBreak, ActualDurationMin: 5, StartTime: start},
			quest:   questForXP(200, models.QuestTypeStandard, models.FrequencyDaily),
			quality: 100,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SessionXP(tt.session, tt.quest, tt.quality); got != tt.want {
				t.Errorf("SessionXP() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSessionXPMonotonicInXPPerPomodoro(t *testing.T) {
	sess := models.Session{SessionType: models.SessionTypePomodoro, ActualDurationMin: 25}
	prev := -1
	for xp := 10; xp <= 200; xp += 10 {
		quest := questForXP(xp, models.QuestTypeStandard, models.FrequencyCustom)
		high := SessionXP(sess, quest, 80)
		if high <= prev {
			t.Fatalf("XP did not increase: xpPerPomodoro=%d gave %d after %d", xp, high, prev)
		}
		low := SessionXP(sess, quest, 40)
		if low != high/2 {
			t.Errorf("low-quality XP = %d, want half of %d", low, high)
		}
		prev = high
	}
}

func TestApplyQuestXPRollsOver(t *testing.T) {
	g := models.Gamification{Level: 0, XP: 450}

	levels := applyQuestXP(&g, 100)
	if levels != 1 {
		t.Fatalf("levels gained = %d, want 1", levels)
	}
	if g.Level != 1 {
		t.Errorf("Level = %d, want 1", g.Level)
	}
	if g.XP != 50 {
		t.Errorf("XP = %d, want 50 rolled over", g.XP)
	}
	if g.XPToNext != LevelThreshold(1)-50 {
		t.Errorf("XPToNext = %d, want %d", g.XPToNext, LevelThreshold(1)-50)
	}
}

func TestLevelThresholdCurve(t *testing.T) {
	wants := map[int]int{0: 500, 1: 750, 2: 1125, 3: 1687}
	for level, want := range wants {
		if got := LevelThreshold(level); got != want {
			t.Errorf("LevelThreshold(%d) = %d, want %d", level, got, want)
		}
	}
}
