package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wordl-bot/wordl/internal/domain"
)

func newStatsCmd(c *cli) *cobra.Command {
	var userID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show points, session averages and the hardest words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.close()

			points, err := app.recorder.UserPoints(ctx, userID)
			if err != nil {
				return err
			}
			agg, err := app.recorder.LoadAggregates(ctx, userID)
			if err != nil {
				return err
			}
			hardest, err := app.recorder.Hardest(ctx, userID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Points: %d\n", points)
			fmt.Fprintf(out, "Sessions: %d, average %.0f%%, best %.0f%%\n",
				agg.TotalSessions, agg.AveragePercentage, agg.BestPercentage)
			return printHardest(out, hardest)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "learner id")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of words to list")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printHardest(out io.Writer, rows []domain.AnswerAggregate) error {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No answers recorded yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WORD\tMODE\tCORRECT\tATTEMPTS\tACCURACY")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f%%\n", r.Value, r.Category, r.Correct, r.Attempts, r.Accuracy())
	}
	return w.Flush()
}
