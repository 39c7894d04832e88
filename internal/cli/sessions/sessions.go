package sessions

import (
	"fmt"
	"time"

	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/models"
)

type StartCmd struct {
	Quest   string `arg:"" help:"Quest ID or title prefix to work on."`
	Subtask string `help:"Subtask ID to focus this session on."`
	Deep    bool   `help:"Start an open-ended deep focus session instead of a pomodoro."`
	Min     int    `help:"Planned minutes. Defaults to the quest's schedule."`
}

func (c *StartCmd) Run(ctx *cli.Context) error {
	quest, err := ctx.FindQuest(c.Quest)
	if err != nil {
		return err
	}

	sessionType := models.SessionTypePomodoro
	if c.Deep {
		sessionType = models.SessionTypeDeepFocus
	}

	sess, err := ctx.Sessions.Start(ctx.UserID(), quest.ID, c.Subtask, sessionType, c.Min)
	if err != nil {
		return err
	}

	fmt.Printf("Started %s on %q (%d min planned)\n", sess.SessionType, quest.Title, sess.PlannedDurationMin)
	return nil
}

type PauseCmd struct{}

func (c *PauseCmd) Run(ctx *cli.Context) error {
	sess, err := ctx.Sessions.Pause(ctx.UserID())
	if err != nil {
		return err
	}
	fmt.Printf("Paused after %s of focus\n", formatElapsed(sess, ctx))
	return nil
}

type ResumeCmd struct{}

func (c *ResumeCmd) Run(ctx *cli.Context) error {
	sess, err := ctx.Sessions.Resume(ctx.UserID())
	if err != nil {
		return err
	}
	fmt.Printf("Resumed (%d interruptions so far)\n", len(sess.Interruptions))
	return nil
}

type SwitchCmd struct{}

func (c *SwitchCmd) Run(ctx *cli.Context) error {
	sess, err := ctx.Sessions.SwitchToDeepFocus(ctx.UserID())
	if err != nil {
		return err
	}
	fmt.Printf("Switched to deep focus (%s carried over)\n", formatElapsed(sess, ctx))
	return nil
}

type CompleteCmd struct{}

func (c *CompleteCmd) Run(ctx *cli.Context) error {
	res, err := ctx.Sessions.Complete(ctx.UserID())
	if err != nil {
		return err
	}

	if res.Session.SessionType == models.SessionTypeBreak {
		fmt.Println("Break finished")
		return nil
	}

	fmt.Printf("Session complete: quality %d, +%d xp\n", res.Quality, res.XPEarned)
	if res.QuestLeveledUp {
		fmt.Printf("  quest reached level %d\n", res.QuestLevel)
	}
	if res.UserLeveledUp {
		fmt.Printf("  you reached level %d\n", res.UserLevel)
	}
	if res.AutoStartBreak {
		fmt.Printf("  take a break: %d min (auto-start is on)\n", res.BreakDurationMin)
	}
	return nil
}

type AbandonCmd struct{}

func (c *AbandonCmd) Run(ctx *cli.Context) error {
	sess, err := ctx.Sessions.Abandon(ctx.UserID())
	if err != nil {
		return err
	}
	fmt.Printf("Abandoned %s session, no xp awarded\n", sess.SessionType)
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	sess, err := ctx.Sessions.Current(ctx.UserID())
	if err != nil {
		return err
	}

	quest, qerr := ctx.Store.GetQuest(sess.QuestID)
	title := sess.QuestID
	if qerr == nil {
		title = quest.Title
	}

	now := ctx.Clock.Now()
	fmt.Printf("%s on %q: %s\n", sess.SessionType, title, sess.Status)
	fmt.Printf("  active %s", formatElapsed(sess, ctx))
	if sess.SessionType != models.SessionTypeDeepFocus {
		fmt.Printf(", %s remaining", sess.Remaining(now).Truncate(time.Second))
	}
	fmt.Printf(", paused %ds across %d interruptions\n", sess.TotalPausedSec, len(sess.Interruptions))
	return nil
}

func formatElapsed(sess models.Session, ctx *cli.Context) string {
	return sess.ElapsedActive(ctx.Clock.Now()).Truncate(time.Second).String()
}
