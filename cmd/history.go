package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history <content-id>",
	Short: "Show the enriched version history of a content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contentID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse content id: %w", err)
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		items, err := app.history.EnhancedHistory(cmd.Context(), contentID)
		if err != nil {
			return err
		}

		if historyJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(items)
		}

		for _, item := range items {
			line := fmt.Sprintf("v%d  %s  %s",
				item.Entry.VersionNumber,
				item.Entry.CreatedAt.Format("2006-01-02 15:04:05"),
				item.CreatorName)
			if item.Entry.BranchTag != "" {
				line += "  [" + item.Entry.BranchTag + "]"
			}
			if item.Entry.ChangeNote != "" {
				line += "  " + item.Entry.ChangeNote
			}
			if !item.Diff.Initial && len(item.Diff.ChangedFields) > 0 {
				line += "  (" + strings.Join(item.Diff.ChangedFields, ", ") + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <content-id> <version>",
	Short: "Restore a content to an earlier version as a new version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contentID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse content id: %w", err)
		}
		target, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("parse version number: %w", err)
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		entry, err := app.history.RestoreVersion(cmd.Context(), contentID, target, actorFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored version %d as version %d\n", target, entry.VersionNumber)
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(historyCmd, restoreCmd)
}
