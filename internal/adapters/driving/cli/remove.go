package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [site] [url]",
	Short: "Remove one entity from a site's index",
	Long: `Strikes one entity from a site's content index, regenerates the
affected shard artifact and synchronises it with the remote knowledge
base. Removing an entity that is not indexed is a no-op.`,
	Args: cobra.ExactArgs(2),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	site, entityURL := args[0], args[1]
	if err := ingestor.Remove(context.Background(), site, entityURL); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Printf("Removed %s from %s.\n", entityURL, site)
	return nil
}
