package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kverlaine/questforge/internal/anti"
	"github.com/kverlaine/questforge/internal/config"
	"github.com/kverlaine/questforge/internal/gm"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/session"
	"github.com/kverlaine/questforge/internal/storage"
	"github.com/kverlaine/questforge/internal/syncqueue"
	"github.com/kverlaine/questforge/internal/transport"
)

// Context carries the composed services into every command's Run method.
type Context struct {
	Config    config.Config
	Store     storage.Provider
	Queue     *syncqueue.Queue
	Transport *transport.Client
	GM        *gm.Service
	Sessions  *session.Service
	Anti      *anti.Service
	Drainer   *syncqueue.Drainer
	Clock     session.Clock
}

// UserID returns the configured local profile id.
func (c *Context) UserID() string {
	return c.Config.UserID
}

// FindQuest resolves a quest by full id or unambiguous id/title prefix among
// the user's quests.
func (c *Context) FindQuest(ref string) (models.Quest, error) {
	if quest, err := c.Store.GetQuest(ref); err == nil && quest.UserID == c.UserID() {
		return quest, nil
	}

	quests, err := c.Store.GetQuestsForUser(c.UserID())
	if err != nil {
		return models.Quest{}, err
	}

	lower := strings.ToLower(ref)
	var matches []models.Quest
	for _, q := range quests {
		if strings.HasPrefix(q.ID, ref) || strings.HasPrefix(strings.ToLower(q.Title), lower) {
			matches = append(matches, q)
		}
	}
	switch len(matches) {
	case 0:
		return models.Quest{}, fmt.Errorf("no quest matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		var titles []string
		for _, q := range matches {
			titles = append(titles, q.Title)
		}
		return models.Quest{}, fmt.Errorf("%q is ambiguous: %s", ref, strings.Join(titles, ", "))
	}
}

// ParseWeekdays parses a comma-separated list of weekdays for custom
// schedules.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	dayMap := map[string]time.Weekday{
		"sun": time.Sunday, "sunday": time.Sunday,
		"mon": time.Monday, "monday": time.Monday,
		"tue": time.Tuesday, "tuesday": time.Tuesday,
		"wed": time.Wednesday, "wednesday": time.Wednesday,
		"thu": time.Thursday, "thursday": time.Thursday,
		"fri": time.Friday, "friday": time.Friday,
		"sat": time.Saturday, "saturday": time.Saturday,
	}

	var weekdays []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if wd, ok := dayMap[part]; ok {
			weekdays = append(weekdays, wd)
			continue
		}
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 || num > 6 {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		weekdays = append(weekdays, time.Weekday(num))
	}
	return weekdays, nil
}

// ParseDifficulty validates a difficulty tier string.
func ParseDifficulty(s string) (models.Difficulty, error) {
	d := models.Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("invalid difficulty %q (trivial|easy|medium|hard|epic)", s)
	}
	return d, nil
}

// FormatSchedule renders a schedule for list output.
func FormatSchedule(s models.Schedule) string {
	switch s.Frequency {
	case models.FrequencyDaily:
		return "daily"
	case models.FrequencyWeekly:
		return "weekly"
	case models.FrequencyCustom:
		if len(s.CustomDays) == 0 {
			return "custom"
		}
		var days []string
		for _, wd := range s.CustomDays {
			days = append(days, wd.String()[:3])
		}
		return "on " + strings.Join(days, ",")
	}
	return string(s.Frequency)
}
