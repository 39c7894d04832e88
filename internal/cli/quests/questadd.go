package quests

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/kverlaine/questforge/internal/anti"
	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/gm"
	"github.com/kverlaine/questforge/internal/models"
)

type QuestAddCmd struct {
	Title          string  `arg:"" optional:"" help:"Quest title. Omit to fill in interactively."`
	Description    string  `help:"Longer description."`
	Type           string  `short:"t" help:"Quest type (standard|dungeon|todo|anti)." default:"standard"`
	Difficulty     string  `short:"d" help:"Difficulty tier (trivial|easy|medium|hard|epic)." default:"medium"`
	Frequency      string  `short:"f" help:"Schedule frequency (daily|weekly|custom)." default:"daily"`
	Days           string  `help:"Comma-separated weekdays for custom frequency."`
	SessionMin     int     `help:"Planned minutes per session." default:"25"`
	BreakMin       int     `help:"Break minutes between sessions." default:"5"`
	Due            string  `help:"Due date (YYYY-MM-DD)."`
	EstimatedHours float64 `help:"Rough total effort estimate in hours."`
	Subtasks       string  `help:"Comma-separated subtask titles."`
}

func (c *QuestAddCmd) Validate() error {
	switch models.QuestType(c.Type) {
	case models.QuestTypeStandard, models.QuestTypeDungeon, models.QuestTypeTodo, models.QuestTypeAnti:
	default:
		return fmt.Errorf("invalid type %q (standard|dungeon|todo|anti)", c.Type)
	}
	if _, err := cli.ParseDifficulty(c.Difficulty); err != nil {
		return err
	}
	switch models.Frequency(c.Frequency) {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyCustom:
	default:
		return fmt.Errorf("invalid frequency %q (daily|weekly|custom)", c.Frequency)
	}
	if c.Frequency == string(models.FrequencyCustom) && c.Days == "" {
		return fmt.Errorf("--days must be specified for custom frequency")
	}
	if c.SessionMin <= 0 {
		return fmt.Errorf("session minutes must be positive")
	}
	if c.Due != "" {
		if _, err := time.Parse(constants.DateFormat, c.Due); err != nil {
			return fmt.Errorf("invalid due date (expected YYYY-MM-DD): %w", err)
		}
	}
	return nil
}

func (c *QuestAddCmd) Run(ctx *cli.Context) error {
	if c.Title == "" {
		if err := c.promptForm(); err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}

	tier, _ := cli.ParseDifficulty(c.Difficulty)

	var customDays []time.Weekday
	if c.Days != "" {
		var err error
		customDays, err = cli.ParseWeekdays(c.Days)
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	quest := models.Quest{
		ID:          uuid.NewString(),
		UserID:      ctx.UserID(),
		Title:       c.Title,
		Description: c.Description,
		Type:        models.QuestType(c.Type),
		Difficulty: models.DifficultyInfo{
			UserAssigned:  tier,
			XPPerPomodoro: gm.XPForTier(tier),
		},
		Schedule: models.Schedule{
			Frequency:          models.Frequency(c.Frequency),
			CustomDays:         customDays,
			SessionDurationMin: c.SessionMin,
			BreakDurationMin:   c.BreakMin,
		},
		EstimatedHours:   c.EstimatedHours,
		ValidationStatus: models.ValidationPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if c.Due != "" {
		due, _ := time.Parse(constants.DateFormat, c.Due)
		quest.DueDate = &due
	}
	for _, title := range strings.Split(c.Subtasks, ",") {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		quest.Subtasks = append(quest.Subtasks, models.Subtask{ID: uuid.NewString(), Title: title})
	}
	if quest.Type == models.QuestTypeAnti {
		quest.Severity = &models.Severity{
			UserAssigned:      tier,
			XPPenaltyPerEvent: anti.PenaltyForTier(tier),
		}
	}

	if err := ctx.Store.AddQuest(quest); err != nil {
		return fmt.Errorf("failed to add quest: %w", err)
	}
	if err := ctx.Queue.Enqueue(models.CollectionQuests, quest.ID, models.SyncOpCreate, constants.PriorityDefault, nil); err != nil {
		return err
	}

	// Anti-quests have no difficulty to validate; severity is the knob.
	if quest.Type != models.QuestTypeAnti {
		if err := ctx.GM.QueueValidation(quest); err != nil {
			return fmt.Errorf("quest added but validation could not be queued: %w", err)
		}
	}

	fmt.Printf("Added quest %q (%s, %s)\n", quest.Title, quest.Type, tier)
	return nil
}

func (c *QuestAddCmd) promptForm() error {
	sessionMin := strconv.Itoa(c.SessionMin)
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&c.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Description").
				Value(&c.Description),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Standard", string(models.QuestTypeStandard)),
					huh.NewOption("Dungeon (team)", string(models.QuestTypeDungeon)),
					huh.NewOption("Todo", string(models.QuestTypeTodo)),
					huh.NewOption("Anti-quest", string(models.QuestTypeAnti)),
				).
				Value(&c.Type),
			huh.NewSelect[string]().
				Title("Difficulty").
				Options(
					huh.NewOption("Trivial", string(models.DifficultyTrivial)),
					huh.NewOption("Easy", string(models.DifficultyEasy)),
					huh.NewOption("Medium", string(models.DifficultyMedium)),
					huh.NewOption("Hard", string(models.DifficultyHard)),
					huh.NewOption("Epic", string(models.DifficultyEpic)),
				).
				Value(&c.Difficulty),
			huh.NewSelect[string]().
				Title("Frequency").
				Options(
					huh.NewOption("Daily", string(models.FrequencyDaily)),
					huh.NewOption("Weekly", string(models.FrequencyWeekly)),
					huh.NewOption("Custom days", string(models.FrequencyCustom)),
				).
				Value(&c.Frequency),
			huh.NewInput().
				Title("Custom days").
				Description("Comma-separated, e.g. mon,wed,fri. Only for custom frequency.").
				Value(&c.Days),
			huh.NewInput().
				Title("Session length (min)").
				Value(&sessionMin).
				Validate(func(s string) error {
					i, err := strconv.Atoi(s)
					if err != nil {
						return err
					}
					if i <= 0 {
						return fmt.Errorf("session length must be a positive number of minutes")
					}
					c.SessionMin = i
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula()).Run()
}
