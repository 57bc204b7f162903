package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/ports/driving"
	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [payload.json|-]",
	Short: "Process a change notification payload",
	Long: `Processes one change notification payload end to end: the payload
is normalised into entity-level events, affected product pages are
scraped and categorised, shard artifacts are regenerated and the remote
knowledge base is updated.

Reads from the given file, or from stdin when the argument is "-" or
omitted. With --watch, ingests payload files as they appear in a
directory instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var watchDir string

func init() {
	ingestCmd.Flags().StringVar(&watchDir, "watch", "",
		"watch a directory and ingest payload files as they appear")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	ctx := context.Background()

	if watchDir != "" {
		if len(args) > 0 {
			return errors.New("--watch and a payload argument are mutually exclusive")
		}
		return watchPayloads(ctx, cmd, watchDir)
	}

	payload, err := readPayload(cmd, args)
	if err != nil {
		return err
	}

	report, err := ingestor.ProcessPayload(ctx, payload)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestReport(cmd, report)
	return nil
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		payload, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read payload from stdin: %w", err)
		}
		return payload, nil
	}
	payload, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}

// watchPayloads ingests every JSON file written into dir until
// interrupted. A payload that fails to process is logged and left in
// place; processing continues with the next file.
func watchPayloads(ctx context.Context, cmd *cobra.Command, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s for payload files (ctrl-c to stop)...\n", dir)

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Watch stopped.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Rename covers editors that write via a temp file.
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			ingestFile(ctx, cmd, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func ingestFile(ctx context.Context, cmd *cobra.Command, path string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Cannot read %s: %v", path, err)
		return
	}
	if len(payload) == 0 {
		// Create events often arrive before the writer has flushed.
		return
	}

	cmd.Printf("Ingesting %s...\n", path)
	report, err := ingestor.ProcessPayload(ctx, payload)
	if err != nil {
		logger.Warn("Ingest of %s failed: %v", path, err)
		return
	}
	printIngestReport(cmd, report)
}

func printIngestReport(cmd *cobra.Command, report *driving.IngestReport) {
	cmd.Printf("Run %s: %d event(s), %d upserted, %d removed, %d skipped\n",
		report.RunID, report.Events, report.Upserted, report.Removed, len(report.Skipped))
	for _, subject := range report.Degraded {
		cmd.Printf("  degraded to full-subject processing: %s\n", subject)
	}
	for _, subject := range report.Skipped {
		cmd.Printf("  skipped: %s\n", subject)
	}
	for site, sync := range report.Sync {
		cmd.Printf("Site %s:\n", site)
		printSyncReport(cmd, sync)
	}
}
