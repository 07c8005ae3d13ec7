package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskprod/backend/internal/infrastructure/config"
	"github.com/taskprod/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root has run
type app struct {
	logLevel string
	cfg      *config.Config
	log      *zap.Logger
	// loadConfig is swapped in tests
	loadConfig func() (*config.Config, error)
}

func newRootCmd() *cobra.Command {
	a := &app{loadConfig: config.Load}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Task backend administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				logger.Sync(a.log)
			}
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(a.migrateCmd(), a.createAdminCmd())
	return root
}

func (a *app) setup() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:      a.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg, a.log = cfg, log
	return nil
}
