// Package tui renders the live focus timer. It is display only: every state
// change goes through the session service, and each tick recomputes the timer
// from the session's wall-clock anchors, so the view stays correct even after
// the process has been suspended.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	timerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(1, 4)
	pausedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("120")).Padding(1, 0)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// FocusModel drives one focus session from start to completion.
type FocusModel struct {
	svc    *session.Service
	clock  session.Clock
	userID string
	quest  models.Quest
	sess   models.Session

	keys keyMap
	help help.Model

	result *session.CompleteResult
	err    error
	done   bool
	width  int
}

func NewFocusModel(svc *session.Service, clock session.Clock, userID string, quest models.Quest, sess models.Session) FocusModel {
	return FocusModel{
		svc:    svc,
		clock:  clock,
		userID: userID,
		quest:  quest,
		sess:   sess,
		keys:   keys,
		help:   help.New(),
	}
}

func (m FocusModel) Init() tea.Cmd {
	return tick()
}

func (m FocusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tick()

	case tea.KeyMsg:
		if m.done {
			return m, tea.Quit
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Pause):
			sess, err := m.svc.Pause(m.userID)
			return m.applied(sess, err), nil

		case key.Matches(msg, m.keys.Resume):
			sess, err := m.svc.Resume(m.userID)
			return m.applied(sess, err), nil

		case key.Matches(msg, m.keys.DeepFocus):
			sess, err := m.svc.SwitchToDeepFocus(m.userID)
			return m.applied(sess, err), nil

		case key.Matches(msg, m.keys.Complete):
			result, err := m.svc.Complete(m.userID)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.result = &result
			if result.AutoStartBreak {
				sess, err := m.svc.Start(m.userID, m.quest.ID, "", models.SessionTypeBreak, result.BreakDurationMin)
				if err == nil {
					m.sess = sess
					return m, nil
				}
			}
			m.done = true
			return m, nil

		case key.Matches(msg, m.keys.Abandon):
			if _, err := m.svc.Abandon(m.userID); err != nil {
				m.err = err
				return m, nil
			}
			m.done = true
			return m, nil
		}
	}
	return m, nil
}

func (m FocusModel) applied(sess models.Session, err error) FocusModel {
	if err != nil {
		m.err = err
		return m
	}
	m.err = nil
	m.sess = sess
	return m
}

func (m FocusModel) View() string {
	now := m.clock.Now()

	header := titleStyle.Render(m.quest.Title)
	mode := string(m.sess.SessionType)

	var timer string
	if m.sess.SessionType == models.SessionTypeDeepFocus {
		// Deep focus counts up toward its cap.
		timer = formatDuration(m.sess.ElapsedActive(now))
	} else {
		timer = formatDuration(m.sess.Remaining(now))
	}
	body := timerStyle.Render(timer)

	status := subtleStyle.Render(fmt.Sprintf("%s · %d min planned · %d pauses",
		mode, m.sess.PlannedDurationMin, len(m.sess.PauseEvents)))
	if m.sess.Status == models.SessionPaused {
		status = pausedStyle.Render("PAUSED") + " " + status
	}

	view := lipgloss.JoinVertical(lipgloss.Left, header, body, status)

	if m.result != nil {
		summary := fmt.Sprintf("Completed: quality %d, +%d XP", m.result.Quality, m.result.XPEarned)
		if m.result.QuestLeveledUp {
			summary += fmt.Sprintf(" · quest reached level %d!", m.result.QuestLevel)
		}
		if m.result.UserLeveledUp {
			summary += fmt.Sprintf(" · you reached level %d!", m.result.UserLevel)
		}
		view = lipgloss.JoinVertical(lipgloss.Left, view, summaryStyle.Render(summary))
	}
	if m.err != nil {
		view = lipgloss.JoinVertical(lipgloss.Left, view, errStyle.Render(m.err.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, view, m.help.View(m.keys))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
