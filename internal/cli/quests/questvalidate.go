package quests

import (
	"context"
	"fmt"
	"strings"

	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/models"
)

type QuestValidateCmd struct {
	ID  string `arg:"" help:"Quest ID or title prefix to re-validate."`
	Now bool   `help:"Process the validation queue immediately instead of waiting for the next drain."`
}

func (c *QuestValidateCmd) Run(ctx *cli.Context) error {
	quest, err := ctx.FindQuest(c.ID)
	if err != nil {
		return err
	}
	if quest.Type == models.QuestTypeAnti {
		return fmt.Errorf("anti-quests carry a severity, not a difficulty; use: questforge anti severity")
	}

	if err := ctx.GM.QueueValidation(quest); err != nil {
		return fmt.Errorf("failed to queue validation: %w", err)
	}
	fmt.Printf("Queued %q for validation\n", quest.Title)

	if !c.Now {
		return nil
	}
	if err := ctx.GM.ProcessPendingQueue(context.Background()); err != nil {
		return fmt.Errorf("validation run failed: %w", err)
	}

	quest, err = ctx.Store.GetQuest(quest.ID)
	if err != nil {
		return err
	}
	switch quest.ValidationStatus {
	case models.ValidationValidated:
		fmt.Printf("Validated: %s (%s, confidence %.2f)\n",
			quest.Difficulty.Effective(), feedbackSource(quest), quest.Difficulty.Confidence)
		if quest.GMFeedback != nil {
			fmt.Printf("  %s\n", quest.GMFeedback.Reasoning)
			for _, rec := range quest.GMFeedback.Recommendations {
				fmt.Printf("  - %s\n", rec)
			}
		}
	case models.ValidationFailed:
		fmt.Println("Validation failed; it will be retried on the next sync")
	default:
		fmt.Printf("Validation still %s\n", strings.ToLower(string(quest.ValidationStatus)))
	}
	return nil
}

func feedbackSource(q models.Quest) string {
	if q.GMFeedback == nil {
		return "unknown"
	}
	return q.GMFeedback.Source
}
