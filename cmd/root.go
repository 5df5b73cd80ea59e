// Package cmd provides the folio CLI over the content versioning core.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	actorFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio - content versioning, locking, and release management",
	Long: `Folio maintains append-only version history for content documents,
resolves lock state across the collection/content/element hierarchy,
and manages named release branches with purge-protected checkpoints.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".folio/config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "actor id recorded on mutations")
}

func Execute() error {
	return rootCmd.Execute()
}
