package session

import (
	"fmt"
	"math"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
)

// LevelThreshold is the XP needed to leave the given level. The same
// exponential curve applies to quest-local levels and the user's global level.
func LevelThreshold(level int) int {
	return int(constants.QuestLevelBase * math.Pow(constants.QuestLevelGrowth, float64(level)))
}

// SessionXP computes the XP a completed session earns. Sessions shorter than
// the minimum duration and break sessions earn nothing.
func SessionXP(s models.Session, quest models.Quest, quality int) int {
	if s.ActualDurationMin < constants.MinXPSessionMin {
		return 0
	}
	if s.SessionType == models.SessionTypeBreak {
		return 0
	}

	xpPerPomodoro := quest.Difficulty.XPPerPomodoro
	if xpPerPomodoro <= 0 {
		xpPerPomodoro = 75
	}

	switch s.SessionType {
	case models.SessionTypePomodoro:
		mult := 1.0
		if quality < 50 {
			mult = 0.5
		}
		xp := math.Floor(float64(xpPerPomodoro) * mult)
		if quest.Schedule.AlignedOn(s.StartTime) {
			xp *= 1.1
		}
		if quest.Type == models.QuestTypeDungeon {
			xp *= 1.5
		}
		return int(math.Floor(xp))
	case models.SessionTypeDeepFocus:
		xp := math.Floor(float64(s.ActualDurationMin) * float64(xpPerPomodoro) / 25.0 * constants.DeepFocusRate)
		if quest.Type == models.QuestTypeDungeon {
			xp *= 1.5
		}
		return int(math.Floor(xp))
	}
	return 0
}

// applyQuestXP adds earned XP to the quest's local level track, rolling
// remainder XP over each level-up. It returns how many levels were gained.
func applyQuestXP(g *models.Gamification, xp int) int {
	g.XP += xp
	levelsGained := 0
	for g.XP >= LevelThreshold(g.Level) {
		g.XP -= LevelThreshold(g.Level)
		g.Level++
		levelsGained++
	}
	g.XPToNext = LevelThreshold(g.Level) - g.XP
	return levelsGained
}

// applyUserXP adds earned XP to the user's global total and advances the
// global level along the same curve. Unlike the quest track, total XP is
// cumulative; the level is derived from how much of it the curve consumes.
func applyUserXP(u *models.UserProfile, xp int) int {
	u.TotalXP += xp
	levelsGained := 0
	for u.TotalXP >= userLevelFloor(u.Level+1) {
		u.Level++
		levelsGained++
	}
	return levelsGained
}

// userLevelFloor is the cumulative XP required to reach the given level.
func userLevelFloor(level int) int {
	total := 0
	for l := 0; l < level; l++ {
		total += LevelThreshold(l)
	}
	return total
}

// milestoneFor renders the progress-history marker for a quest level-up.
func milestoneFor(level int) string {
	return fmt.Sprintf("reached level %d", level)
}
