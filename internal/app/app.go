// Package app wires the ledger components from a Config. Every binary
// builds one App and closes it on exit.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-sync/internal/archive"
	"github.com/dvloznov/ledger-sync/internal/catalog"
	"github.com/dvloznov/ledger-sync/internal/config"
	"github.com/dvloznov/ledger-sync/internal/ledger"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/reconcile"
	"github.com/dvloznov/ledger-sync/internal/remote"
	"github.com/dvloznov/ledger-sync/internal/store"
	"github.com/dvloznov/ledger-sync/internal/store/gormstore"
	"github.com/dvloznov/ledger-sync/internal/store/inmemory"
)

// App holds the wired services.
type App struct {
	Config         *config.Config
	Remote         *remote.Client
	Store          store.Store
	Engine         *reconcile.Engine
	Ledger         *ledger.Service
	Categories     *catalog.Categories
	PaymentMethods *catalog.PaymentMethods
	Archiver       *archive.GCSArchiver // nil when no archive bucket is configured

	closers []func() error
}

// New builds an App. The store is Postgres when cfg.DatabaseURL is set and
// in-memory otherwise.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)
	a := &App{Config: cfg}

	remoteCfg := remote.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.HTTPTimeout}
	if cfg.ArchiveBucket != "" {
		arch, err := archive.NewGCSArchiver(ctx, cfg.ArchiveBucket)
		if err != nil {
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.Archiver = arch
		a.closers = append(a.closers, arch.Close)
		remoteCfg.Archiver = arch
		log.Info().Str("bucket", cfg.ArchiveBucket).Msg("Malformed payload archiving enabled")
	}

	client, err := remote.NewClient(remoteCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}
	a.Remote = client

	if cfg.DatabaseURL != "" {
		st, err := gormstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		a.Store = st
		log.Info().Msg("Using Postgres store")
	} else {
		a.Store = inmemory.NewStore()
		log.Info().Msg("Using in-memory store")
	}
	a.closers = append(a.closers, a.Store.Close)

	a.Engine = reconcile.NewEngine(client, a.Store)
	a.Ledger = ledger.NewService(client, a.Store)
	a.Categories = catalog.NewCategories(client)
	a.PaymentMethods = catalog.NewPaymentMethods(client)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
