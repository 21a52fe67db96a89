package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tgienger/taskdesk/internal/config"
	"github.com/tgienger/taskdesk/internal/workspace"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	logger  *zap.Logger
	manager *workspace.Manager
)

var rootCmd = &cobra.Command{
	Use:          "taskdesk",
	Short:        "Hierarchical task manager with workspaces",
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger()
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		manager, err = workspace.NewManager(cfg, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if manager != nil {
			manager.Close()
		}
		if logger != nil {
			logger.Sync()
		}
	},
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("TASKDESK_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
