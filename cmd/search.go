package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		hits, err := app.index.Search(cmd.Context(), args[0], searchLimit)
		if err != nil {
			return err
		}
		for _, hit := range hits {
			fmt.Fprintf(cmd.OutOrStdout(), "%.3f  %s  %s  %s\n", hit.Score, hit.ContentID, hit.Slug, hit.Title)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum hits")
	rootCmd.AddCommand(searchCmd)
}
