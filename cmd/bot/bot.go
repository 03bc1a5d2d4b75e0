// Package bot implements the long-running bot command: the full pipeline,
// the publish scheduler and the admin API.
package bot

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomeme/cmd/common"
	"github.com/jonesrussell/gomeme/internal/api"
	"github.com/jonesrussell/gomeme/internal/filter"
	"github.com/jonesrussell/gomeme/internal/fingerprint"
	"github.com/jonesrussell/gomeme/internal/history"
	"github.com/jonesrussell/gomeme/internal/media"
	"github.com/jonesrussell/gomeme/internal/metrics"
	"github.com/jonesrussell/gomeme/internal/pipeline"
	"github.com/jonesrussell/gomeme/internal/publisher"
	"github.com/jonesrussell/gomeme/internal/queue"
	"github.com/jonesrussell/gomeme/internal/scheduler"
	"github.com/jonesrussell/gomeme/internal/source"
)

// hoursPerDay converts the retention day count into a duration.
const hoursPerDay = 24

// Command returns the bot command. version is read at run time so link
// time overrides are visible.
func Command(version *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the bot",
		Long: `Run the acquisition pipeline, the publish scheduler and the admin API.
The bot runs continuously until interrupted with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), *version)
		},
	}
}

// runBot wires every component together and runs until the context is
// cancelled.
func runBot(parent context.Context, version string) error {
	deps, err := common.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	cfg, log := deps.Config, deps.Logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := history.NewPostgresConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store := history.NewStore(db, log)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	slot := queue.NewSlot()
	acquirer := media.NewAcquirer(cfg.Media, log)

	// Recover from files a previous crash left behind.
	if err := acquirer.CleanTempFolder(); err != nil {
		log.Warn("failed to clean temp folder at startup", "error", err)
	}

	feed := source.NewReddit(cfg.Source, log)
	printer := fingerprint.New(cfg.Fingerprint, log)
	screen := filter.New(cfg.Filter, log)
	pipe := pipeline.New(cfg.Media, feed, acquirer, printer, screen, store, slot, m, log)

	tg, err := publisher.NewTelegram(cfg.Telegram, log)
	if err != nil {
		return err
	}

	cadence := scheduler.Cadence{
		PostsPerDay: cfg.Schedule.PostsPerDay,
		StartDelay:  cfg.Schedule.StartDelay,
		PreloadLead: cfg.Schedule.PreloadLead,
	}
	retention := time.Duration(cfg.Schedule.RetentionDays) * hoursPerDay * time.Hour
	sched := scheduler.New(cadence, cfg.Telegram.Caption, retention,
		pipe, tg, store, acquirer, slot, m, log)

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if err := tg.Notify(ctx, fmt.Sprintf("bot started (version %s)", version)); err != nil {
		log.Warn("failed to send startup notification", "error", err)
	}

	server := api.NewServer(api.Params{
		Config:   cfg.Server,
		Logger:   log,
		Version:  version,
		Injector: pipe,
		Slot:     slot,
		Releaser: acquirer,
		Stats:    store,
		Schedule: sched,
		Registry: registry,
	})

	log.Info("bot running",
		"version", version,
		"posts_per_day", cadence.PostsPerDay,
		"subreddits", cfg.Source.Subreddits,
	)

	return server.Start(ctx)
}
