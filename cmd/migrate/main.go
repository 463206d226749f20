package main

import (
	"context"
	"flag"
	"time"

	"github.com/dvloznov/ledger-sync/internal/config"
	infraBQ "github.com/dvloznov/ledger-sync/internal/infra/bigquery"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/store/gormstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load config")
	}

	databaseURL := flag.String("database-url", cfg.DatabaseURL, "Postgres DSN for the local store (or set LEDGER_DATABASE_URL)")
	projectID := flag.String("project", cfg.BigQueryProject, "GCP project for the snapshot table (or set LEDGER_BQ_PROJECT)")
	datasetID := flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID")
	tableID := flag.String("table", cfg.BigQueryTable, "BigQuery snapshot table ID")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if *databaseURL == "" && *projectID == "" {
		log.Fatal().Msg("Error: nothing to migrate, set --database-url and/or --project")
	}

	if *databaseURL != "" {
		st, err := gormstore.Open(ctx, *databaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate Postgres store")
		}
		st.Close()
		log.Info().Msg("Postgres schema is up to date")
	}

	if *projectID != "" {
		exporter, err := infraBQ.NewSnapshotExporter(ctx, *projectID, *datasetID, *tableID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer exporter.Close()

		created, err := exporter.EnsureTable(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate snapshot table")
		}
		log.Info().
			Str("dataset", *datasetID).
			Str("table", *tableID).
			Bool("created", created).
			Msg("Snapshot table is up to date")
	}
}
