package syncing

import (
	"context"
	"fmt"
	"time"

	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/constants"
)

type SyncCmd struct {
	Now   bool `help:"Drain the queue immediately instead of just reporting it."`
	Dead  bool `help:"List dead-lettered operations."`
	Clear bool `help:"Purge the dead-letter store."`
}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	if c.Clear {
		if err := ctx.Queue.ClearDeadLetters(); err != nil {
			return fmt.Errorf("failed to clear dead letters: %w", err)
		}
		fmt.Println("Cleared dead-letter store")
		return nil
	}

	if c.Dead {
		letters, err := ctx.Queue.DeadLetters()
		if err != nil {
			return fmt.Errorf("failed to load dead letters: %w", err)
		}
		if len(letters) == 0 {
			fmt.Println("No dead-lettered operations")
			return nil
		}
		for _, dl := range letters {
			fmt.Printf("%s  %s/%s %s\n", dl.FailedAt.Format(time.RFC3339), dl.Op.Collection, dl.Op.DocumentID, dl.Op.Operation)
			fmt.Printf("  %s\n", dl.Reason)
		}
		return nil
	}

	pending, err := ctx.Queue.Pending()
	if err != nil {
		return fmt.Errorf("failed to count pending operations: %w", err)
	}

	if !c.Now {
		dead, err := ctx.Store.CountDeadLetters()
		if err != nil {
			return err
		}
		fmt.Printf("%d operations pending, %d dead-lettered\n", pending, dead)
		if ctx.Transport != nil {
			fmt.Printf("remote: %s\n", onlineLabel(ctx))
		} else {
			fmt.Println("remote: not configured (local-only mode)")
		}
		return nil
	}

	if ctx.Transport == nil {
		return fmt.Errorf("no remote configured; set remote_base_url in the config file")
	}

	bg := context.Background()
	if err := ctx.Drainer.Drain(bg, constants.SyncBatchSize); err != nil {
		return fmt.Errorf("drain failed: %w", err)
	}
	if err := ctx.GM.ProcessPendingQueue(bg); err != nil {
		return fmt.Errorf("validation pass failed: %w", err)
	}

	remaining, err := ctx.Queue.Pending()
	if err != nil {
		return err
	}
	fmt.Printf("Synced: %d of %d operations flushed\n", pending-remaining, pending)
	return nil
}

func onlineLabel(ctx *cli.Context) string {
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, online := ctx.Transport.Ping(pingCtx); online {
		return "online"
	}
	return "offline"
}
