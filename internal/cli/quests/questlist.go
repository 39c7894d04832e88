package quests

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/priority"
)

type QuestListCmd struct {
	All  bool   `help:"Include anti-quests in the listing."`
	Type string `short:"t" help:"Only list quests of this type."`
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	lockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	priorityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

func (c *QuestListCmd) Run(ctx *cli.Context) error {
	quests, err := ctx.Store.GetQuestsForUser(ctx.UserID())
	if err != nil {
		return fmt.Errorf("failed to list quests: %w", err)
	}

	var visible []models.Quest
	for _, q := range quests {
		if q.Type == models.QuestTypeAnti && !c.All && c.Type != string(models.QuestTypeAnti) {
			continue
		}
		if c.Type != "" && string(q.Type) != c.Type {
			continue
		}
		visible = append(visible, q)
	}
	if len(visible) == 0 {
		fmt.Println("No quests yet. Add one with: questforge quest add")
		return nil
	}

	now := ctx.Clock.Now()
	priority.Sort(visible, now)

	for _, q := range visible {
		if q.Type == models.QuestTypeAnti {
			printAntiQuest(q)
			continue
		}
		score := priority.Score(q, now)
		fmt.Printf("%s  %s\n", titleStyle.Render(q.Title), priorityStyle.Render(fmt.Sprintf("p=%.1f", score)))
		fmt.Printf("  %s\n", subtleStyle.Render(describeQuest(q, now)))
	}
	return nil
}

func describeQuest(q models.Quest, now time.Time) string {
	parts := []string{
		string(q.Type),
		fmt.Sprintf("%s %s", q.Difficulty.Effective(), validationBadge(q)),
		cli.FormatSchedule(q.Schedule),
		fmt.Sprintf("lvl %d (%d xp)", q.Gamification.Level, q.Gamification.XP),
	}
	if q.DueDate != nil {
		if q.DueDate.Before(now) {
			parts = append(parts, "OVERDUE "+q.DueDate.Format(constants.DateFormat))
		} else {
			parts = append(parts, "due "+q.DueDate.Format(constants.DateFormat))
		}
	}
	if len(q.Subtasks) > 0 {
		done := 0
		for _, st := range q.Subtasks {
			if st.Completed {
				done++
			}
		}
		parts = append(parts, fmt.Sprintf("subtasks %d/%d", done, len(q.Subtasks)))
	}
	return strings.Join(parts, "  ·  ")
}

func validationBadge(q models.Quest) string {
	switch q.ValidationStatus {
	case models.ValidationValidated:
		src := ""
		if q.GMFeedback != nil {
			src = ":" + q.GMFeedback.Source
		}
		return lockedStyle.Render("[validated" + src + "]")
	case models.ValidationQueued:
		return pendingStyle.Render("[queued]")
	case models.ValidationFailed:
		return failedStyle.Render("[failed]")
	default:
		return pendingStyle.Render("[pending]")
	}
}

func printAntiQuest(q models.Quest) {
	fmt.Printf("%s  %s\n", titleStyle.Render(q.Title), failedStyle.Render("anti"))
	tier := models.DifficultyMedium
	if q.Severity != nil {
		tier = q.Severity.UserAssigned
	}
	line := fmt.Sprintf("severity %s", tier)
	if q.AntiTracking != nil {
		line += fmt.Sprintf("  ·  today %d, week %d, month %d  ·  clean streak %dd (best %dd)  ·  %d xp lost",
			q.AntiTracking.CountToday, q.AntiTracking.CountWeek, q.AntiTracking.CountMonth,
			q.AntiTracking.CurrentGapDays, q.AntiTracking.LongestGapDays, q.AntiTracking.TotalXPLost)
	}
	fmt.Printf("  %s\n", subtleStyle.Render(line))
}
