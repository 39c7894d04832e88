package session

import (
	"math"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
)

// QualityScore grades a completed focus session on a 0-100 scale. The score
// starts from the completion rate, loses points for time spent paused, and
// gains small bonuses for overtime and for the user's current streak.
func QualityScore(actualMin, plannedMin, totalPausedSec, streakDays int) (int, models.QualityFactors) {
	if plannedMin <= 0 {
		plannedMin = constants.DefaultPomodoroMin
	}

	completion := math.Min(float64(actualMin)/float64(plannedMin), 1.5) * 100

	interruption := float64(totalPausedSec) / float64(plannedMin*60) * 100
	if interruption > 50 {
		interruption = 50
	}

	var overtime float64
	if actualMin > plannedMin {
		overrunPct := float64(actualMin-plannedMin) / float64(plannedMin) * 100
		overtime = math.Min(10, overrunPct/5)
	}

	consistency := math.Min(10, float64(streakDays)/float64(constants.StreakBonusMaxDays)*10)

	score := completion - interruption + overtime + consistency
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return int(math.Round(score)), models.QualityFactors{
		Completion:   completion,
		Interruption: interruption,
		Overtime:     overtime,
		Consistency:  consistency,
	}
}
