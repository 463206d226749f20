package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledger-sync/internal/app"
	"github.com/dvloznov/ledger-sync/internal/config"
	infraBQ "github.com/dvloznov/ledger-sync/internal/infra/bigquery"
	"github.com/dvloznov/ledger-sync/internal/jobs"
	"github.com/dvloznov/ledger-sync/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/notionsync"
	"github.com/dvloznov/ledger-sync/internal/remote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load config")
	}

	interval := flag.Duration("interval", cfg.SyncInterval, "Time between scheduled syncs")
	currentMonth := flag.Bool("current-month", false, "Restrict scheduled syncs to the current month")
	mirrorNotion := flag.Bool("notion", false, "Mirror the ledger to Notion after each sync (needs NOTION_TOKEN and NOTION_DB_ID)")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer a.Close()

	var after []jobs.AfterSync

	if cfg.BigQueryEnabled() {
		exporter, err := infraBQ.NewSnapshotExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
		}
		defer exporter.Close()

		if last, err := exporter.LastSyncedAt(ctx); err != nil {
			log.Warn().Err(err).Msg("Could not read last snapshot time")
		} else if !last.IsZero() {
			log.Info().Time("last_snapshot", last).Msg("Found previous ledger snapshot")
		}

		after = append(after, func(ctx context.Context, job *jobs.SyncJob) error {
			txs, err := a.Store.ListAll(ctx)
			if err != nil {
				return err
			}
			_, err = exporter.Export(ctx, txs, time.Now())
			return err
		})
	}

	if *mirrorNotion {
		if cfg.NotionToken == "" || cfg.NotionDBID == "" {
			log.Fatal().Msg("Error: NOTION_TOKEN and NOTION_DB_ID are required with --notion")
		}
		notion := notionsync.NewNotionClient(cfg.NotionToken)
		after = append(after, func(ctx context.Context, job *jobs.SyncJob) error {
			txs, err := a.Store.ListTopLevel(ctx)
			if err != nil {
				return err
			}
			_, err = notionsync.Mirror(ctx, notion, cfg.NotionDBID, txs, notionsync.Options{})
			return err
		})
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(10, jobStore)

	if err := jobQueue.Start(ctx, jobs.NewSyncHandler(a.Engine, after...)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	schedule := func() {
		job := &jobs.SyncJob{Trigger: jobs.TriggerSchedule, MaxRetries: 2}
		if *currentMonth {
			job.Filter = remote.MonthFilter(time.Now())
		}
		if err := jobQueue.PublishSync(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to schedule sync")
		}
	}

	log.Info().
		Dur("interval", *interval).
		Bool("bigquery", cfg.BigQueryEnabled()).
		Bool("notion", *mirrorNotion).
		Msg("Worker service started")

	schedule()
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case <-ticker.C:
			schedule()
		case <-quit:
			break loop
		}
	}

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	log.Info().Msg("Worker service exited")
}
