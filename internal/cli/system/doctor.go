package system

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/keyring"
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbReachable := false

	// Check 1: DB reachable
	if err := checkDBReachable(ctx); err != nil {
		fmt.Printf("❌ Database reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Database reachable: OK\n")
		dbReachable = true
	}

	// Check 2: Keyring available
	if keyring.IsAvailable() {
		fmt.Printf("✓ Keyring available: OK\n")
	} else {
		fmt.Printf("⚠ Keyring available: WARNING\n")
		fmt.Printf("   Sync API token cannot be stored; remote sync will run unauthenticated\n")
	}

	// Check 3: Duplicate processes (warning only)
	if n, err := countOwnProcesses(); err != nil {
		fmt.Printf("⊘ Duplicate processes: SKIPPED (%v)\n", err)
	} else if n > 1 {
		fmt.Printf("⚠ Duplicate processes: WARNING\n")
		fmt.Printf("   %d questforge processes running; concurrent writers may race\n", n)
	} else {
		fmt.Printf("✓ Duplicate processes: OK\n")
	}

	// Check 4: Remote reachable
	if ctx.Config.RemoteBaseURL == "" {
		fmt.Printf("⊘ Remote reachable: SKIPPED (no remote configured)\n")
	} else {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, online := ctx.Transport.Ping(pingCtx)
		cancel()
		if online {
			fmt.Printf("✓ Remote reachable: OK\n")
		} else {
			fmt.Printf("⚠ Remote reachable: WARNING\n")
			fmt.Printf("   Offline; mutations will queue and validation falls back to the local heuristic\n")
		}
	}

	// Check 5: Pending sync operations (only if DB is reachable)
	if dbReachable {
		if pending, err := ctx.Queue.Pending(); err != nil {
			fmt.Printf("❌ Sync queue: FAIL\n")
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		} else if pending > 0 {
			fmt.Printf("⚠ Sync queue: %d operations awaiting delivery\n", pending)
		} else {
			fmt.Printf("✓ Sync queue: empty\n")
		}
	} else {
		fmt.Printf("⊘ Sync queue: SKIPPED (database not reachable)\n")
	}

	// Check 6: Dead letters (only if DB is reachable)
	if dbReachable {
		if letters, err := ctx.Queue.DeadLetters(); err != nil {
			fmt.Printf("❌ Dead letters: FAIL\n")
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		} else if len(letters) > 0 {
			fmt.Printf("⚠ Dead letters: %d permanently failed operations (see 'questforge sync --dead')\n", len(letters))
		} else {
			fmt.Printf("✓ Dead letters: none\n")
		}
	} else {
		fmt.Printf("⊘ Dead letters: SKIPPED (database not reachable)\n")
	}

	fmt.Println()
	if hasError {
		return fmt.Errorf("diagnostics found problems")
	}
	fmt.Println("All diagnostics passed.")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	_, err := ctx.Store.GetSettings()
	return err
}

func countOwnProcesses() (int, error) {
	procs, err := ps.Processes()
	if err != nil {
		return 0, err
	}
	self := os.Getpid()
	count := 1
	for _, p := range procs {
		if p.Pid() != self && strings.HasPrefix(p.Executable(), constants.AppName) {
			count++
		}
	}
	return count, nil
}
