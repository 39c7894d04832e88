package gm

import (
	"time"

	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/storage"
)

type BurnoutRisk string

const (
	BurnoutLow      BurnoutRisk = "low"
	BurnoutModerate BurnoutRisk = "moderate"
	BurnoutHigh     BurnoutRisk = "high"
	BurnoutCritical BurnoutRisk = "critical"
)

// Metrics summarizes recent user performance for validation context.
type Metrics struct {
	WeeklyVelocity     float64 // completed sessions in the trailing 7 days
	MonthlyConsistency float64 // percentage of the trailing 30 days with at least one completed session
	AvgSessionQuality  float64 // mean quality score over the trailing 7 days
	FocusHoursWeek     float64
	BurnoutRisk        BurnoutRisk
}

// GatherMetrics derives the user's performance metrics from session history.
func GatherMetrics(store storage.Provider, userID string, now time.Time) (Metrics, error) {
	monthAgo := now.AddDate(0, 0, -30)
	sessions, err := store.GetSessionsForUserSince(userID, monthAgo)
	if err != nil {
		return Metrics{}, err
	}

	weekAgo := now.AddDate(0, 0, -7)
	var (
		weekCount    int
		weekMinutes  int
		qualitySum   float64
		qualityCount int
		activeDays   = map[string]bool{}
	)

	for _, s := range sessions {
		if s.Status != models.SessionCompleted {
			continue
		}
		activeDays[s.StartTime.Format("2006-01-02")] = true
		if s.StartTime.After(weekAgo) {
			weekCount++
			weekMinutes += s.ActualDurationMin
			qualitySum += float64(s.QualityScore)
			qualityCount++
		}
	}

	m := Metrics{
		WeeklyVelocity:     float64(weekCount),
		MonthlyConsistency: float64(len(activeDays)) / 30.0 * 100.0,
		FocusHoursWeek:     float64(weekMinutes) / 60.0,
	}
	if qualityCount > 0 {
		m.AvgSessionQuality = qualitySum / float64(qualityCount)
	}
	m.BurnoutRisk = classifyBurnout(m.FocusHoursWeek, m.AvgSessionQuality)

	return m, nil
}

func classifyBurnout(focusHoursWeek, avgQuality float64) BurnoutRisk {
	switch {
	case focusHoursWeek > 35:
		return BurnoutCritical
	case focusHoursWeek > 25:
		return BurnoutHigh
	case avgQuality > 0 && avgQuality < 40 && focusHoursWeek >= 10:
		return BurnoutHigh
	case focusHoursWeek > 15:
		return BurnoutModerate
	default:
		return BurnoutLow
	}
}
