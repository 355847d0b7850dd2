package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wordl-bot/wordl/internal/service/vocabulary"
)

func newWordsCmd(c *cli) *cobra.Command {
	var userID, groupID int64

	cmd := &cobra.Command{
		Use:   "words",
		Short: "Add and remove single words",
	}
	cmd.PersistentFlags().Int64Var(&userID, "user", 0, "learner id")
	cmd.PersistentFlags().Int64Var(&groupID, "group", 0, "group id (0 for the personal list)")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add \"SOURCE - TARGET\"",
			Short: "Add one word",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				source, target, err := vocabulary.ParseWordLine(args[0])
				if err != nil {
					return err
				}
				app, err := newApplication(cmd.Context(), c.cfg, c.logger)
				if err != nil {
					return err
				}
				defer app.close()

				w, err := app.vocabulary.AddWord(cmd.Context(), userID, groupID, source, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added #%d %s - %s\n", w.ID, w.Source, w.Target)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete WORD_ID",
			Short: "Delete one of your words",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				wordID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid word id %q: %w", args[0], err)
				}
				app, err := newApplication(cmd.Context(), c.cfg, c.logger)
				if err != nil {
					return err
				}
				defer app.close()

				deleted, err := app.vocabulary.DeleteWord(cmd.Context(), userID, wordID)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("word %d not found", wordID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", wordID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every word of the personal list or of a group you own",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				app, err := newApplication(cmd.Context(), c.cfg, c.logger)
				if err != nil {
					return err
				}
				defer app.close()

				allowed, removed, err := app.vocabulary.DeleteAllWords(cmd.Context(), userID, groupID)
				if err != nil {
					return err
				}
				if !allowed {
					return fmt.Errorf("only the owner of group %d can clear it", groupID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d word(s)\n", removed)
				return nil
			},
		},
	)
	return cmd
}

func newGroupCmd(c *cli) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create and delete shared word groups",
	}
	cmd.PersistentFlags().Int64Var(&userID, "user", 0, "owner id")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a group owned by --user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := newApplication(cmd.Context(), c.cfg, c.logger)
				if err != nil {
					return err
				}
				defer app.close()

				g, err := app.vocabulary.CreateGroup(cmd.Context(), userID, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created group #%d %q\n", g.ID, g.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete GROUP_ID",
			Short: "Delete a group with its words",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				groupID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid group id %q: %w", args[0], err)
				}
				app, err := newApplication(cmd.Context(), c.cfg, c.logger)
				if err != nil {
					return err
				}
				defer app.close()

				deleted, err := app.vocabulary.DeleteGroup(cmd.Context(), userID, groupID)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("group %d not found or not owned by %d", groupID, userID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted group #%d\n", groupID)
				return nil
			},
		},
	)
	return cmd
}
