// Package cli implements the command line interface for the catalog
// sync tool.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	configfile "github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/adapters/driven/config/file"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/adapters/driven/knowledgebase/elevenlabs"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/adapters/driven/scraper/firecrawl"
	storagefile "github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/adapters/driven/storage/file"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driving"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/services"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// ingestor is the driving service behind every command. Wired lazily by
// initServices; tests inject their own.
var ingestor driving.Ingestor

var (
	verboseFlag   bool
	dataDirFlag   string
	configDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "llmsync",
	Short: "Incremental catalog to knowledge base synchronisation",
	Long: `llmsync keeps a remote knowledge base in sync with tracked
e-commerce catalogs. Change notification payloads are normalised into
entity-level events, affected products are scraped and categorised into
shards, shard artifacts are regenerated, and only artifacts whose
content actually changed are replaced remotely.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"directory for index and artifact state (default ~/.llmsync/data)")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "",
		"directory holding profiles.toml (default ~/.llmsync)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initServices builds the production ingestor on first use.
func initServices() error {
	if ingestor != nil {
		return nil
	}

	dataDir := dataDirFlag
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".llmsync", "data")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	profiles, err := configfile.NewProfileStore(configDirFlag)
	if err != nil {
		return fmt.Errorf("load site profiles: %w", err)
	}

	normaliser, err := services.NewNormaliser(profiles)
	if err != nil {
		return fmt.Errorf("initialise payload normaliser: %w", err)
	}

	indexes := storagefile.NewIndexStore(dataDir)
	artifacts := storagefile.NewArtifactStore(dataDir)
	syncState := storagefile.NewSyncStateStore(dataDir)

	scraper := firecrawl.NewClient(firecrawl.ClientOptions{
		APIKey: os.Getenv("FIRECRAWL_API_KEY"),
	})
	kb := elevenlabs.NewClient(elevenlabs.ClientOptions{
		APIKey: os.Getenv("ELEVENLABS_API_KEY"),
	})

	ingestor = services.NewIngestor(
		profiles,
		indexes,
		artifacts,
		scraper,
		normaliser,
		services.NewDiffExtractor(),
		services.NewCategoryResolver(),
		services.NewMaterialiser(artifacts),
		services.NewLifecycle(kb, syncState),
	)
	return nil
}

// printSyncReport writes one remote synchronisation summary line per
// outcome class.
func printSyncReport(cmd *cobra.Command, report *driving.SyncReport) {
	if report == nil {
		return
	}
	cmd.Printf("Remote sync: %d uploaded, %d replaced, %d skipped, %d deleted, %d failed\n",
		report.Uploaded, report.Replaced, report.Skipped, report.Deleted, report.Failed)
	for _, id := range report.PendingVerification {
		cmd.Printf("  indexing still pending for document %s\n", id)
	}
}
