package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/foliocms/folio/core/cms"
)

var (
	contentCollection string
	contentTitle      string
	contentSlug       string
	contentNote       string
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		now := time.Now().UTC()
		collection := &cms.Collection{
			ID:        uuid.New(),
			Name:      args[0],
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := app.docs.CreateCollection(cmd.Context(), collection); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), collection.ID)
		return nil
	},
}

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Manage content documents",
}

var contentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a content with its initial version",
	RunE: func(cmd *cobra.Command, args []string) error {
		collectionID, err := uuid.Parse(contentCollection)
		if err != nil {
			return fmt.Errorf("parse collection id: %w", err)
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		content := &cms.Content{
			CollectionID: collectionID,
			Title:        contentTitle,
			Slug:         contentSlug,
			Status:       cms.StatusDraft,
		}
		entry, err := app.versions.CreateContent(cmd.Context(), content, actorFlag, contentNote)
		if err != nil {
			return err
		}
		if err := app.index.IndexContent(cmd.Context(), content); err != nil {
			app.logger.Warn("index content", "error", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s (version %d)\n", content.ID, entry.VersionNumber)
		return nil
	},
}

var contentUpdateCmd = &cobra.Command{
	Use:   "update <content-id>",
	Short: "Update live fields and record a new version",
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

		var changes cms.ContentChanges
		if cmd.Flags().Changed("title") {
			changes.Title = &contentTitle
		}
		if cmd.Flags().Changed("slug") {
			changes.Slug = &contentSlug
		}

		entry, err := app.history.RecordUpdate(cmd.Context(), contentID, changes, actorFlag, contentNote)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d\n", entry.VersionNumber)
		return nil
	},
}

func init() {
	contentCreateCmd.Flags().StringVar(&contentCollection, "collection", "", "collection id (required)")
	contentCreateCmd.Flags().StringVar(&contentTitle, "title", "", "content title")
	contentCreateCmd.Flags().StringVar(&contentSlug, "slug", "", "content slug")
	contentCreateCmd.Flags().StringVar(&contentNote, "note", "", "change note")
	contentCreateCmd.MarkFlagRequired("collection")

	contentUpdateCmd.Flags().StringVar(&contentTitle, "title", "", "new title")
	contentUpdateCmd.Flags().StringVar(&contentSlug, "slug", "", "new slug")
	contentUpdateCmd.Flags().StringVar(&contentNote, "note", "", "change note")

	collectionCmd.AddCommand(collectionCreateCmd)
	contentCmd.AddCommand(contentCreateCmd, contentUpdateCmd)
	rootCmd.AddCommand(collectionCmd, contentCmd)
}
