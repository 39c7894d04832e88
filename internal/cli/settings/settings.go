package settings

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kverlaine/questforge/internal/cli"
)

type ShowCmd struct{}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	s, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	fmt.Printf("auto-start-break: %t\n", s.AutoStartBreak)
	fmt.Printf("pomodoro-min:     %d\n", s.DefaultPomodoroMin)
	fmt.Printf("break-min:        %d\n", s.DefaultBreakMin)
	fmt.Printf("timezone:         %s\n", s.Timezone)
	return nil
}

type SetCmd struct {
	Key   string `arg:"" help:"Setting to change (auto-start-break|pomodoro-min|break-min|timezone)."`
	Value string `arg:"" help:"New value."`
}

func (c *SetCmd) Run(ctx *cli.Context) error {
	s, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	switch c.Key {
	case "auto-start-break":
		v, err := strconv.ParseBool(c.Value)
		if err != nil {
			return fmt.Errorf("auto-start-break must be true or false")
		}
		s.AutoStartBreak = v
	case "pomodoro-min":
		v, err := strconv.Atoi(c.Value)
		if err != nil || v <= 0 {
			return fmt.Errorf("pomodoro-min must be a positive number of minutes")
		}
		s.DefaultPomodoroMin = v
	case "break-min":
		v, err := strconv.Atoi(c.Value)
		if err != nil || v <= 0 {
			return fmt.Errorf("break-min must be a positive number of minutes")
		}
		s.DefaultBreakMin = v
	case "timezone":
		if c.Value != "Local" {
			if _, err := time.LoadLocation(c.Value); err != nil {
				return fmt.Errorf("unknown timezone %q: %w", c.Value, err)
			}
		}
		s.Timezone = c.Value
	default:
		return fmt.Errorf("unknown setting %q (auto-start-break|pomodoro-min|break-min|timezone)", c.Key)
	}

	if err := ctx.Store.SaveSettings(s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Printf("Set %s to %s\n", c.Key, c.Value)
	return nil
}
