// Package streak tracks consecutive-day activity. Days are calendar-day
// strings, so the streak logic never has to reason about times of day or
// partial days.
package streak

import (
	"time"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
)

// Calculator advances a streak for activity on a given day.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

// Update applies one day of activity. A second activity on the same day is a
// no-op, activity on the day after the last one extends the streak, and any
// gap resets it to one.
func (Calculator) Update(current models.Streak, day string) models.Streak {
	if current.LastActivityDate == day {
		return current
	}

	next := current
	if current.LastActivityDate == previousDay(day) {
		next.Current++
	} else {
		next.Current = 1
	}
	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	next.LastActivityDate = day
	return next
}

func previousDay(day string) string {
	t, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(constants.DateFormat)
}
