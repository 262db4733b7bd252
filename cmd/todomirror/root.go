package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/todomirror/todomirror/internal/config"
	"github.com/todomirror/todomirror/internal/logging"
	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/remote"
	"github.com/todomirror/todomirror/internal/mirror/service"
	"github.com/todomirror/todomirror/internal/mirror/sync"
)

var (
	configFile string
	verbose    bool

	loader *config.Loader
	cfg    *config.Config
	logs   *logging.Factory
)

var rootCmd = &cobra.Command{
	Use:   "todomirror",
	Short: "Mirror a remote todo API into a local SQLite cache",
	Long: `todomirror fetches todo records from a remote REST API, keeps a local
SQLite mirror of them, and re-exposes them through its own REST endpoints and
a small web front end.

Reads are served from the mirror. When the mirror is empty it is refilled
from the remote in one transaction before the read is answered.

Configuration is read from todomirror.toml (or --config), a .env file, and
TODOMIRROR_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init must work without a valid configuration.
		if cmd.Annotations["skipConfig"] == "true" {
			return nil
		}

		loader = config.NewLoader(configFile)
		loaded, err := loader.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logs = logging.New(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Quiet:      !verbose && cmd.Annotations["daemon"] != "true",
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logs != nil {
			return logs.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./todomirror.toml or ~/.config/todomirror/todomirror.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log component activity to stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "read", Title: "Reading tasks:"},
		&cobra.Group{ID: "sync", Title: "Mirror management:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)
}

// stack is the set of collaborators shared by every command.
type stack struct {
	db     *db.DB
	client *remote.Client
	syncer sync.Syncer
}

// openStack opens the mirror and wires the syncer to the remote API.
func openStack(ctx context.Context, observers ...sync.Observer) (*stack, error) {
	database, err := db.Open(cfg.Mirror.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror: %w", err)
	}
	if err := database.InitSchemaContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	client, err := remote.New(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
		Logger:  logs.Logger("remote"),
	})
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	return &stack{
		db:     database,
		client: client,
		syncer: sync.New(database, client, logs.Logger("sync"), observers...),
	}, nil
}

// tasks returns the read path selected by mirror.mode.
func (s *stack) tasks(logger *log.Logger) (service.TaskService, service.Mode, error) {
	mode, err := service.ParseMode(cfg.Mirror.Mode)
	if err != nil {
		return nil, "", err
	}
	if mode == service.ModeRemote {
		return service.NewRemote(s.client, logger), mode, nil
	}
	return service.NewLocal(s.db, s.syncer, logger), mode, nil
}

func (s *stack) Close() error {
	return s.db.Close()
}
