package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/kverlaine/questforge/internal/anti"
	"github.com/kverlaine/questforge/internal/cli"
	"github.com/kverlaine/questforge/internal/cli/quests"
	"github.com/kverlaine/questforge/internal/cli/sessions"
	"github.com/kverlaine/questforge/internal/cli/settings"
	"github.com/kverlaine/questforge/internal/cli/stats"
	"github.com/kverlaine/questforge/internal/cli/syncing"
	"github.com/kverlaine/questforge/internal/cli/system"
	"github.com/kverlaine/questforge/internal/config"
	"github.com/kverlaine/questforge/internal/errors"
	"github.com/kverlaine/questforge/internal/gm"
	"github.com/kverlaine/questforge/internal/keyring"
	"github.com/kverlaine/questforge/internal/logger"
	"github.com/kverlaine/questforge/internal/session"
	"github.com/kverlaine/questforge/internal/storage"
	"github.com/kverlaine/questforge/internal/streak"
	"github.com/kverlaine/questforge/internal/syncqueue"
	"github.com/kverlaine/questforge/internal/transport"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path. Defaults to ~/.config/questforge/config.yaml." type:"string"`
	DB      string `help:"SQLite file path or PostgreSQL connection string; overrides the config file. For PostgreSQL, credentials must NOT be embedded in the connection string."`
	Debug   bool   `help:"Enable verbose logging to stderr."`

	Init   system.InitCmd   `cmd:"" help:"Initialize questforge storage."`
	Doctor system.DoctorCmd `cmd:"" help:"Run health checks and diagnostics."`
	Quest  struct {
		Add      quests.QuestAddCmd      `cmd:"" help:"Add a new quest."`
		List     quests.QuestListCmd     `cmd:"" help:"List quests by priority." default:"1"`
		Validate quests.QuestValidateCmd `cmd:"" help:"Re-queue a quest for difficulty validation."`
		Delete   quests.QuestDeleteCmd   `cmd:"" help:"Delete a quest."`
		Restore  quests.QuestRestoreCmd  `cmd:"" help:"Restore a deleted quest."`
	} `cmd:"" help:"Manage quests."`
	Anti struct {
		Log      quests.AntiLogCmd      `cmd:"" help:"Log an anti-quest occurrence."`
		Severity quests.AntiSeverityCmd `cmd:"" help:"Change an anti-quest's severity tier."`
	} `cmd:"" help:"Track habits you are trying to break."`
	Start    sessions.StartCmd    `cmd:"" help:"Start a focus session on a quest."`
	Pause    sessions.PauseCmd    `cmd:"" help:"Pause the open session."`
	Resume   sessions.ResumeCmd   `cmd:"" help:"Resume the paused session."`
	Switch   sessions.SwitchCmd   `cmd:"" help:"Convert the open pomodoro to deep focus."`
	Complete sessions.CompleteCmd `cmd:"" help:"Complete the open session and collect XP."`
	Abandon  sessions.AbandonCmd  `cmd:"" help:"Abandon the open session without XP."`
	Status   sessions.StatusCmd   `cmd:"" help:"Show the open session."`
	Focus    sessions.FocusCmd    `cmd:"" help:"Full-screen session timer."`
	Sync     syncing.SyncCmd      `cmd:"" help:"Inspect or flush the offline sync queue."`
	Stats    stats.StatsCmd       `cmd:"" help:"Daily XP chart and profile summary."`
	Quests   stats.QuestsCmd      `cmd:"" help:"Per-quest effort summary."`
	Settings struct {
		Show settings.ShowCmd `cmd:"" help:"Show current settings." default:"1"`
		Set  settings.SetCmd  `cmd:"" help:"Change a setting."`
	} `cmd:"" help:"Manage application settings."`
	Token struct {
		Set    system.TokenSetCmd    `cmd:"" help:"Store the remote API token in the OS keyring."`
		Clear  system.TokenClearCmd  `cmd:"" help:"Remove the stored API token."`
		Status system.TokenStatusCmd `cmd:"" help:"Check whether a token is stored."`
	} `cmd:"" help:"Manage the remote API token."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("questforge"),
		kong.Description("Quest-based productivity tracker with offline-first sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": "v0.1.0"},
	)

	cfgPath := CLI.Config
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		errors.Fatalf("failed to load config %s: %v", cfgPath, err)
	}
	if CLI.DB != "" {
		cfg.Database = CLI.DB
	}
	if CLI.Debug {
		cfg.Debug = true
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: filepath.Dir(cfgPath)}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	var store storage.Provider
	if strings.HasPrefix(cfg.Database, "postgres://") || strings.HasPrefix(cfg.Database, "postgresql://") {
		if storage.HasEmbeddedCredentials(cfg.Database) {
			fmt.Fprintf(os.Stderr, "❌ Error: PostgreSQL connection strings with embedded credentials are NOT allowed.\n")
			fmt.Fprintf(os.Stderr, "       Use one of these secure alternatives:\n")
			fmt.Fprintf(os.Stderr, "       1. OS keyring:   store the full connection string with the keyring tool of your OS\n")
			fmt.Fprintf(os.Stderr, "       2. Environment:  export PGPASSWORD for a credential-free connection string\n")
			fmt.Fprintf(os.Stderr, "       3. .pgpass file: use a connection string without a password\n")
			os.Exit(1)
		}
		store = storage.NewPostgresStore(cfg.Database)
	} else {
		store = storage.NewSQLiteStore(cfg.Database)
	}

	var client *transport.Client
	if cfg.RemoteBaseURL != "" {
		token, _ := keyring.GetAPIToken()
		client = transport.New(cfg.RemoteBaseURL, token)
	}

	queue := syncqueue.NewQueue(store)
	gmSvc := gm.NewService(store, queue, remoteFor(client), logger.Logger)
	locks := session.NewUserLocks()
	sessionSvc := session.NewService(store, queue, streak.NewCalculator(), locks, logger.Logger)
	antiSvc := anti.NewService(store, queue, locks, logger.Logger)
	drainer := syncqueue.NewDrainer(queue, store, transportFor(client), gmSvc, logger.Logger)
	if cfg.DrainIntervalMin > 0 {
		drainer.SetInterval(time.Duration(cfg.DrainIntervalMin) * time.Minute)
	}

	appCtx := &cli.Context{
		Config:    cfg,
		Store:     store,
		Queue:     queue,
		Transport: client,
		GM:        gmSvc,
		Sessions:  sessionSvc,
		Anti:      antiSvc,
		Drainer:   drainer,
		Clock:     session.SystemClock(),
	}

	// Init handles its own loading so it can create a fresh database.
	if ctx.Selected() != nil && ctx.Selected().Name != "init" {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
		defer store.Close()
	}

	if err := ctx.Run(appCtx); err != nil {
		errors.Fatal(err)
	}
}

// remoteFor keeps the gm service's remote a true nil when no base URL is
// configured, so validation falls straight through to the local heuristic.
func remoteFor(client *transport.Client) gm.Remote {
	if client == nil {
		return nil
	}
	return client
}

func transportFor(client *transport.Client) syncqueue.Transport {
	if client == nil {
		return nil
	}
	return client
}
