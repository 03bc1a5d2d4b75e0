// Package fill implements the one-shot queue fill command, useful for
// verifying the pipeline without waiting for a preload tick.
package fill

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomeme/cmd/common"
	"github.com/jonesrussell/gomeme/internal/filter"
	"github.com/jonesrussell/gomeme/internal/fingerprint"
	"github.com/jonesrussell/gomeme/internal/history"
	"github.com/jonesrussell/gomeme/internal/media"
	"github.com/jonesrussell/gomeme/internal/metrics"
	"github.com/jonesrussell/gomeme/internal/pipeline"
	"github.com/jonesrussell/gomeme/internal/queue"
	"github.com/jonesrussell/gomeme/internal/source"
)

// Command returns the fill command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "fill",
		Short: "Run one pipeline pass",
		Long: `Fetch candidates, evaluate them and report which one would be queued.
The prepared media is deleted afterwards; nothing is published.`,
		RunE: runFill,
	}
}

func runFill(cmd *cobra.Command, _ []string) error {
	deps, err := common.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	cfg, log := deps.Config, deps.Logger
	ctx := cmd.Context()

	db, err := history.NewPostgresConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store := history.NewStore(db, log)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	slot := queue.NewSlot()
	acquirer := media.NewAcquirer(cfg.Media, log)
	pipe := pipeline.New(
		cfg.Media,
		source.NewReddit(cfg.Source, log),
		acquirer,
		fingerprint.New(cfg.Fingerprint, log),
		filter.New(cfg.Filter, log),
		store,
		slot,
		metrics.New(prometheus.NewRegistry()),
		log,
	)

	if err := pipe.FillQueue(ctx); err != nil {
		return err
	}

	item, ok := slot.Take()
	if !ok {
		fmt.Println("no acceptable candidate in this batch")
		return nil
	}

	fmt.Printf("would publish %s: %q (%s)\n", item.Candidate.ID, item.Candidate.Title, item.Candidate.URL)

	if err := acquirer.DeleteFile(item.Media.LocalPath); err != nil {
		log.Warn("failed to delete media", "path", item.Media.LocalPath, "error", err)
	}
	if item.Media.PreviewPath != item.Media.LocalPath {
		if err := acquirer.DeleteFile(item.Media.PreviewPath); err != nil {
			log.Warn("failed to delete preview", "path", item.Media.PreviewPath, "error", err)
		}
	}

	return nil
}
