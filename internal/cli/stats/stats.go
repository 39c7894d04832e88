package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/session"
	"github.com/kverlaine/questforge/internal/storage"
)

type StatsCmd struct {
	Days int `help:"Number of trailing days to chart." default:"7"`
}

var (
	xpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	headStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (c *StatsCmd) Run(ctx *cli.Context) error {
	if c.Days <= 0 {
		c.Days = 7
	}

	now := ctx.Clock.Now()
	since := now.AddDate(0, 0, -(c.Days - 1))
	sessions, err := ctx.Store.GetSessionsForUserSince(ctx.UserID(), since.Truncate(24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	xpByDay := make(map[string]int)
	minByDay := make(map[string]int)
	completed := 0
	totalXP := 0
	for _, s := range sessions {
		if s.Status != models.SessionCompleted || s.SessionType == models.SessionTypeBreak {
			continue
		}
		day := s.StartTime.Format(constants.DateFormat)
		xpByDay[day] += s.XPEarned
		minByDay[day] += s.ActualDurationMin
		completed++
		totalXP += s.XPEarned
	}

	fmt.Println(headStyle.Render(fmt.Sprintf("Last %d days", c.Days)))
	fmt.Printf("%d sessions completed, %s earned\n\n", completed, xpStyle.Render(fmt.Sprintf("%d xp", totalXP)))

	chart := barchart.New(max(4*c.Days, 28), 10)
	var bars []barchart.BarData
	for i := 0; i < c.Days; i++ {
		d := since.AddDate(0, 0, i)
		day := d.Format(constants.DateFormat)
		bars = append(bars, barchart.BarData{
			Label: d.Format("Mon"),
			Values: []barchart.BarValue{{
				Name:  day,
				Value: float64(xpByDay[day]),
				Style: xpStyle,
			}},
		})
	}
	chart.PushAll(bars)
	chart.Draw()
	fmt.Println(chart.View())

	if err := c.printProfile(ctx); err != nil {
		return err
	}
	return nil
}

func (c *StatsCmd) printProfile(ctx *cli.Context) error {
	user, err := ctx.Store.GetUser(ctx.UserID())
	if err != nil {
		if err == storage.ErrNotFound {
			fmt.Println(subtleStyle.Render("No profile yet; complete a session to start one"))
			return nil
		}
		return err
	}

	nextFloor := 0
	for lvl := 0; lvl <= user.Level; lvl++ {
		nextFloor += session.LevelThreshold(lvl)
	}
	fmt.Printf("\nLevel %d, %d xp total (%d to next level)\n",
		user.Level, user.TotalXP, nextFloor-user.TotalXP)
	fmt.Printf("Streak: %d days (longest %d)\n", user.Streak.Current, user.Streak.Longest)
	return nil
}

// Quests summarizes per-quest effort instead of the daily XP chart.
type QuestsCmd struct{}

func (c *QuestsCmd) Run(ctx *cli.Context) error {
	quests, err := ctx.Store.GetQuestsForUser(ctx.UserID())
	if err != nil {
		return err
	}

	var active []models.Quest
	for _, q := range quests {
		if q.Type != models.QuestTypeAnti && q.Tracking.SessionCount > 0 {
			active = append(active, q)
		}
	}
	if len(active) == 0 {
		fmt.Println("No tracked sessions yet")
		return nil
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].Tracking.TotalMinutes > active[j].Tracking.TotalMinutes
	})

	for _, q := range active {
		fmt.Printf("%s\n", headStyle.Render(q.Title))
		fmt.Printf("  %s\n", subtleStyle.Render(fmt.Sprintf(
			"%d sessions, %d min, velocity %.1f/wk, avg quality %.0f",
			q.Tracking.SessionCount, q.Tracking.TotalMinutes, q.Tracking.Velocity, q.Tracking.AvgQuality)))
	}
	return nil
}
