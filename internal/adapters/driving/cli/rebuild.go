package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [site]",
	Short: "Re-scrape and re-categorise a site's whole index",
	Long: `Re-scrapes every indexed entity of a site, re-resolves its
category, regenerates all shard artifacts and synchronises them with
the remote knowledge base. Use after changing a site profile's
categorisation settings or to repair drift.`,
	Args: cobra.ExactArgs(1),
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	site := args[0]
	cmd.Printf("Rebuilding %s...\n", site)

	report, err := ingestor.Rebuild(context.Background(), site)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	printSyncReport(cmd, report)
	return nil
}
