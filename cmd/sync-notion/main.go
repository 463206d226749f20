package main

import (
	"context"
	"flag"
	"time"

	"github.com/dvloznov/ledger-sync/internal/app"
	"github.com/dvloznov/ledger-sync/internal/config"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/notionsync"
	"github.com/dvloznov/ledger-sync/internal/reconcile"
	"github.com/dvloznov/ledger-sync/internal/remote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDBID, "Notion database ID (or set NOTION_DB_ID)")
	month := flag.Int("month", 0, "Sync only this month before mirroring (1-12, needs --year)")
	year := flag.Int("year", 0, "Sync only this year before mirroring")
	skipSync := flag.Bool("skip-sync", false, "Mirror the local store as is, without syncing first")
	prune := flag.Bool("prune", false, "Archive Notion pages whose transaction no longer exists")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without writing to Notion")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	// Create context with timeout so the CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer a.Close()

	if !*skipSync {
		filter := &remote.Filter{Month: *month, Year: *year}
		if *month != 0 && (*month < 1 || *month > 12 || *year < 1) {
			log.Fatal().Int("month", *month).Int("year", *year).Msg("Error: --month must be 1-12 and needs --year")
		}
		result, err := a.Engine.Sync(ctx, filter)
		if err != nil {
			log.Fatal().Err(err).Msg(reconcile.Message(err))
		}
		log.Info().
			Str("total", result.Total).
			Str("pending", result.Pending).
			Int("fetched", result.Fetched).
			Msg("Synced ledger before mirroring")
	}

	txs, err := a.Store.ListTopLevel(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read local ledger")
	}

	notion := notionsync.NewNotionClient(*notionToken)
	stats, err := notionsync.Mirror(ctx, notion, *notionDBID, txs, notionsync.Options{DryRun: *dryRun, Prune: *prune})
	if err != nil {
		log.Fatal().Err(err).Msg("Notion mirror failed")
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("archived", stats.Archived).
		Int("failed", stats.Failed).
		Msg("Notion sync completed")
}
