package gm

import (
	"fmt"
	"strings"

	"github.com/kverlaine/questforge/internal/models"
)

// xpPerPomodoroByTier is the fixed XP-per-unit lookup keyed by final tier.
var xpPerPomodoroByTier = map[models.Difficulty]int{
	models.DifficultyTrivial: 30,
	models.DifficultyEasy:    50,
	models.DifficultyMedium:  75,
	models.DifficultyHard:    100,
	models.DifficultyEpic:    120,
}

// XPForTier returns the XP-per-pomodoro value for a difficulty tier.
func XPForTier(d models.Difficulty) int {
	if xp, ok := xpPerPomodoroByTier[d]; ok {
		return xp
	}
	return xpPerPomodoroByTier[models.DifficultyMedium]
}

const (
	baseConfidence       = 0.5
	overestimateConf     = 0.4
	underScopedConf      = 0.3
	burnoutConf          = 0.3
	localTrustScale      = 0.9
	lowVelocityThreshold = 2.0
	highQualityThreshold = 75.0
	underScopedSubtasks  = 25
	underScopedHours     = 10.0
	lowConsistencyPct    = 60.0
)

// HeuristicResult is the local classifier's output.
type HeuristicResult struct {
	Difficulty      models.Difficulty
	Confidence      float64
	Reasoning       string
	Recommendations []string
	XPPerPomodoro   int
}

// Classify runs the deterministic local rule chain over the quest and the
// user's performance metrics. The rules are evaluated in a fixed order and
// the burnout rule is applied last so it overrides whatever the earlier
// rules decided; that ordering is business logic, not an accident.
func Classify(quest models.Quest, m Metrics) HeuristicResult {
	difficulty := quest.Difficulty.UserAssigned
	if !difficulty.IsValid() {
		difficulty = models.DifficultyMedium
	}

	confidence := baseConfidence
	var reasons []string
	var recs []string

	// Rule 1: low velocity with high-quality sessions means the quest is
	// likely overestimated; step the tier down toward trivial.
	if m.WeeklyVelocity < lowVelocityThreshold && m.AvgSessionQuality >= highQualityThreshold {
		difficulty = models.DifficultyByRank(difficulty.Rank() - 1)
		confidence += overestimateConf
		reasons = append(reasons, "low weekly velocity with high session quality suggests the difficulty is overestimated")
		recs = append(recs, "Consider splitting the quest into smaller wins to keep momentum visible.")
	}

	// Rule 2: a sprawling subtask list plus a large estimate plus weak
	// consistency means the quest is under-scoped; raise it to hard.
	if len(quest.Subtasks) > underScopedSubtasks && quest.EstimatedHours > underScopedHours && m.MonthlyConsistency < lowConsistencyPct {
		difficulty = models.DifficultyHard
		confidence += underScopedConf
		reasons = append(reasons, fmt.Sprintf("%d subtasks and %.0f estimated hours with %.0f%% consistency indicate an under-scoped quest", len(quest.Subtasks), quest.EstimatedHours, m.MonthlyConsistency))
		recs = append(recs, "Break this into multiple quests before committing more sessions.")
	}

	// Rule 3 (last, overrides): elevated burnout risk caps the tier at easy
	// regardless of what the earlier rules concluded.
	if m.BurnoutRisk == BurnoutHigh || m.BurnoutRisk == BurnoutCritical {
		if difficulty.Rank() > models.DifficultyEasy.Rank() {
			difficulty = models.DifficultyEasy
		}
		confidence += burnoutConf
		reasons = append(reasons, fmt.Sprintf("burnout risk is %s; capping difficulty to protect recovery", m.BurnoutRisk))
		recs = append(recs, "Schedule shorter sessions and take the full break between them.")
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	// Offline reasoning is trusted less than the remote reasoner.
	confidence *= localTrustScale

	reasoning := "No adjustment signals; keeping the user-assigned tier."
	if len(reasons) > 0 {
		reasoning = strings.Join(reasons, "; ")
	}

	return HeuristicResult{
		Difficulty:      difficulty,
		Confidence:      confidence,
		Reasoning:       reasoning,
		Recommendations: recs,
		XPPerPomodoro:   XPForTier(difficulty),
	}
}
