package quests

import (
	"fmt"
	"time"

	"github.com/kverlaine/questforge/internal/cli"
)

type AntiLogCmd struct {
	ID    string `arg:"" help:"Anti-quest ID or title prefix."`
	At    string `help:"When the slip happened (RFC3339 or YYYY-MM-DD). Defaults to now."`
	Notes string `short:"n" help:"Optional note on the occurrence."`
}

func (c *AntiLogCmd) Run(ctx *cli.Context) error {
	quest, err := ctx.FindQuest(c.ID)
	if err != nil {
		return err
	}

	var at time.Time
	if c.At != "" {
		at, err = parseWhen(c.At)
		if err != nil {
			return err
		}
	}

	quest, err = ctx.Anti.LogOccurrence(ctx.UserID(), quest.ID, at, c.Notes)
	if err != nil {
		return fmt.Errorf("failed to log occurrence: %w", err)
	}

	last := quest.AntiEvents[len(quest.AntiEvents)-1]
	fmt.Printf("Logged %q: -%d xp\n", quest.Title, last.ActualPenalty)
	if last.ActualPenalty < last.NominalPenalty {
		fmt.Printf("  penalty reduced from %d; you were low on xp\n", last.NominalPenalty)
	}
	if quest.AntiTracking != nil {
		fmt.Printf("  today %d, week %d, month %d\n",
			quest.AntiTracking.CountToday, quest.AntiTracking.CountWeek, quest.AntiTracking.CountMonth)
	}
	return nil
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (expected RFC3339 or YYYY-MM-DD)", s)
}

type AntiSeverityCmd struct {
	ID      string `arg:"" help:"Anti-quest ID or title prefix."`
	Tier    string `arg:"" help:"New severity tier (trivial|easy|medium|hard|epic)."`
	Penalty int    `help:"Override the XP penalty per occurrence. Defaults to the tier's standard penalty."`
}

func (c *AntiSeverityCmd) Run(ctx *cli.Context) error {
	quest, err := ctx.FindQuest(c.ID)
	if err != nil {
		return err
	}
	tier, err := cli.ParseDifficulty(c.Tier)
	if err != nil {
		return err
	}

	quest, err = ctx.Anti.UpdateSeverity(ctx.UserID(), quest.ID, tier, c.Penalty)
	if err != nil {
		return fmt.Errorf("failed to update severity: %w", err)
	}

	fmt.Printf("Updated %q severity to %s (-%d xp per occurrence)\n",
		quest.Title, quest.Severity.UserAssigned, quest.Severity.XPPenaltyPerEvent)
	return nil
}
