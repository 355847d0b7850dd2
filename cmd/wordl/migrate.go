package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			ctx := cmd.Context()
			db, err := openDatabase(ctx, c.cfg.Database, c.logger, false)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.db.Close(); err != nil {
					c.logger.Error("failed to close database", slog.String("error", err.Error()))
				}
			}()

			provider, err := db.migrator()
			if err != nil {
				return err
			}
			return runMigration(cmd, provider, command, c.logger)
		},
	}
}

func runMigration(cmd *cobra.Command, provider *goose.Provider, command string, log *slog.Logger) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		for _, r := range results {
			log.Info("applied migration",
				slog.Int64("version", r.Source.Version),
				slog.Duration("duration", r.Duration))
		}
		fmt.Fprintf(out, "applied %d migration(s)\n", len(results))

	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		log.Info("rolled back migration", slog.Int64("version", r.Source.Version))
		fmt.Fprintf(out, "rolled back version %d\n", r.Source.Version)

	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		return printStatus(out, statuses)

	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		fmt.Fprintln(out, version)

	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
	return nil
}

func printStatus(out io.Writer, statuses []*goose.MigrationStatus) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Source.Version, s.State, applied)
	}
	return w.Flush()
}
