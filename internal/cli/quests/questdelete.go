package quests

import (
	"fmt"

	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
)

type QuestDeleteCmd struct {
	ID string `arg:"" help:"Quest ID or title prefix to delete."`
}

func (c *QuestDeleteCmd) Run(ctx *cli.Context) error {
	quest, err := ctx.FindQuest(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find quest: %w", err)
	}

	if err := ctx.Store.DeleteQuest(quest.ID); err != nil {
		return fmt.Errorf("failed to delete quest: %w", err)
	}
	if err := ctx.Queue.Enqueue(models.CollectionQuests, quest.ID, models.SyncOpDelete, constants.PriorityDefault, nil); err != nil {
		return err
	}

	fmt.Printf("Deleted quest: %s (ID: %s)\n", quest.Title, quest.ID)
	return nil
}

type QuestRestoreCmd struct {
	ID string `arg:"" help:"Quest ID to restore."`
}

func (c *QuestRestoreCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.RestoreQuest(c.ID); err != nil {
		return fmt.Errorf("failed to restore quest: %w", err)
	}
	if err := ctx.Queue.Enqueue(models.CollectionQuests, c.ID, models.SyncOpUpdate, constants.PriorityDefault, nil); err != nil {
		return err
	}

	fmt.Printf("Restored quest with ID: %s\n", c.ID)
	return nil
}
