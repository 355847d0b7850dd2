package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newImportCmd(c *cli) *cobra.Command {
	var userID, groupID int64

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add words from a file of \"source - target\" lines (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(cmd, args[0])
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.close()

			res := app.vocabulary.AddWordsFromLines(cmd.Context(), userID, groupID, lines)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "added %d word(s)\n", res.Added)
			for _, e := range res.Errors {
				fmt.Fprintln(out, e)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "learner id")
	cmd.Flags().Int64Var(&groupID, "group", 0, "group id (0 for the personal list)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func readLines(cmd *cobra.Command, path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}
