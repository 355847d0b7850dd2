package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/wordl-bot/wordl/internal/config"
	"github.com/wordl-bot/wordl/internal/platform/logger"
)

// cli carries state shared by all subcommands once the root pre-run has loaded it.
type cli struct {
	configFile string
	envFile    string
	logOutput  io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "wordl",
		Short:         "Vocabulary review with spaced repetition",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.logOutput = cmd.ErrOrStderr()
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: ./config.yaml or $HOME/.wordl/config.yaml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file loaded before the environment (default: .env)")

	root.AddCommand(
		newMigrateCmd(c),
		newImportCmd(c),
		newQuizCmd(c),
		newBlitzCmd(c),
		newStatsCmd(c),
		newWordsCmd(c),
		newGroupCmd(c),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.LoadWithOptions(config.Options{
		ConfigFile: c.configFile,
		EnvFile:    c.envFile,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.SetupWithWriter(cfg.App, c.logOutput)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Debug("configuration loaded",
		slog.String("log_level", cfg.App.LogLevel),
		slog.String("timezone", cfg.App.Timezone),
		slog.String("database_driver", cfg.Database.Driver))

	c.cfg = cfg
	c.logger = log
	return nil
}
