package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	releaseCopy  bool
	purgePreview bool
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Manage release branches",
}

var releaseCreateCmd = &cobra.Command{
	Use:   "create <collection-id> <name>",
	Short: "Create a named branch checkpoint across a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collectionID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse collection id: %w", err)
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		summary, err := app.releases.CreateRelease(cmd.Context(), collectionID, args[1], actorFlag, releaseCopy)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "branch %q: %d/%d contents checkpointed\n",
			summary.Name, summary.Succeeded, summary.Contents)
		for _, failure := range summary.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %s\n", failure.JobID, failure.Error)
		}
		return nil
	},
}

var releaseContentsCmd = &cobra.Command{
	Use:   "contents <collection-id> <name>",
	Short: "List the frozen contents of a branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collectionID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse collection id: %w", err)
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		frozen, err := app.releases.ContentsForRelease(cmd.Context(), collectionID, args[1])
		if err != nil {
			return err
		}
		for _, item := range frozen {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  v%d  %s\n",
				item.Content.ID, item.Entry.VersionNumber, item.Entry.Snapshot.Title)
		}
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge <collection-id>",
	Short: "Delete unprotected, non-latest version entries",
	Long: `Purge deletes every version entry in the collection that is neither a
content's latest entry nor a protected branch checkpoint. Purge has no
undo; run with --preview first to see what would be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collectionID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse collection id: %w", err)
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if purgePreview {
			count, err := app.releases.PurgePreviewCount(cmd.Context(), collectionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries would be deleted\n", count)
			return nil
		}

		summary, err := app.releases.PurgeVersions(cmd.Context(), collectionID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d entries deleted\n", summary.Deleted)
		for _, failure := range summary.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %s\n", failure.JobID, failure.Error)
		}
		return nil
	},
}

func init() {
	releaseCreateCmd.Flags().BoolVar(&releaseCopy, "copy", false,
		"create fresh copy entries instead of tagging the latest versions in place")
	purgeCmd.Flags().BoolVar(&purgePreview, "preview", false, "count only, delete nothing")

	releaseCmd.AddCommand(releaseCreateCmd, releaseContentsCmd)
	rootCmd.AddCommand(releaseCmd, purgeCmd)
}
