package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [site]",
	Short: "Synchronise a site's artifacts with the knowledge base",
	Long: `Rematerialises every shard artifact of a site from the content
index and synchronises them with the remote knowledge base. Artifacts
whose content hash is unchanged are skipped, so a sync with no
underlying change performs no remote writes.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	site := args[0]
	cmd.Printf("Synchronising %s...\n", site)

	report, err := ingestor.Sync(context.Background(), site)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	printSyncReport(cmd, report)
	return nil
}
