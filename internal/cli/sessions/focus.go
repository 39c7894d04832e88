package sessions

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kverlaine/questforge/internal/cli"
	qerrors "github.com/kverlaine/questforge/internal/errors"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/tui"
)

type FocusCmd struct {
	Quest string `arg:"" optional:"" help:"Quest to start a session on. Omit to attach to the open session."`
	Deep  bool   `help:"Start a deep focus session instead of a pomodoro."`
	Min   int    `help:"Planned minutes. Defaults to the quest's schedule."`
}

// Run opens the full-screen timer. Without a quest argument it attaches to
// whatever session is already open.
func (c *FocusCmd) Run(ctx *cli.Context) error {
	var (
		sess models.Session
		err  error
	)
	if c.Quest == "" {
		sess, err = ctx.Sessions.Current(ctx.UserID())
		if err != nil {
			if qerrors.IsCode(err, qerrors.CodeInvalidState) {
				return errors.New("no open session; pass a quest to start one")
			}
			return err
		}
	} else {
		quest, ferr := ctx.FindQuest(c.Quest)
		if ferr != nil {
			return ferr
		}
		sessionType := models.SessionTypePomodoro
		if c.Deep {
			sessionType = models.SessionTypeDeepFocus
		}
		sess, err = ctx.Sessions.Start(ctx.UserID(), quest.ID, "", sessionType, c.Min)
		if err != nil {
			return err
		}
	}

	quest, err := ctx.Store.GetQuest(sess.QuestID)
	if err != nil {
		return fmt.Errorf("failed to load quest for session: %w", err)
	}

	model := tui.NewFocusModel(ctx.Sessions, ctx.Clock, ctx.UserID(), quest, sess)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
