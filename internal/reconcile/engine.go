// Package reconcile merges batches fetched from the remote ledger into the
// local transaction store.
package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/remote"
	"github.com/dvloznov/ledger-sync/internal/store"
)

// Fetcher fetches one batch of remote transactions.
type Fetcher interface {
	FetchTransactions(ctx context.Context, filter *remote.Filter) (*remote.TransactionPage, error)
}

// Result is what a successful sync reports back.
// Total and Pending are the server's aggregates, passed through verbatim.
type Result struct {
	Total   string `json:"total"`
	Pending string `json:"pending"`
	Fetched int    `json:"fetched"`
	Stats
}

// Engine runs syncs. At most one sync runs at a time per Engine.
type Engine struct {
	fetcher Fetcher
	store   store.Store
	now     func() time.Time
	running atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for CreatedAt and due date fallbacks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine that fetches with fetcher and writes to st.
func NewEngine(fetcher Fetcher, st store.Store, opts ...Option) *Engine {
	e := &Engine{
		fetcher: fetcher,
		store:   st,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether a sync is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Sync fetches one batch with filter and merges it into the store in a single
// write transaction. Any failure leaves the store unchanged. A call made while
// another sync is running returns ErrSyncInProgress.
func (e *Engine) Sync(ctx context.Context, filter *remote.Filter) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer e.running.Store(false)

	log := logger.FromContext(ctx)
	start := time.Now()

	page, err := e.fetcher.FetchTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("Sync: fetching transactions: %w", err)
	}

	if err := checkIDs(page.Transactions, "transactions"); err != nil {
		return nil, fmt.Errorf("Sync: %w", err)
	}

	var stats Stats
	err = e.store.WithinTx(ctx, func(tx store.Tx) error {
		m, err := newMerger(ctx, tx, e.now())
		if err != nil {
			return err
		}
		for _, rec := range page.Transactions {
			m.resolve(rec, nil, placeTopLevel)
		}
		if err := m.commit(); err != nil {
			return err
		}
		stats = m.stats
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Sync: merging batch: %w", err)
	}

	result := &Result{
		Total:   page.Total,
		Pending: page.Pending,
		Fetched: len(page.Transactions),
		Stats:   stats,
	}

	log.Info().
		Int("fetched", result.Fetched).
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("detached", stats.Detached).
		Int("deleted", stats.Deleted).
		Str("total", result.Total).
		Str("pending", result.Pending).
		Str("shape", string(page.Shape)).
		Dur("duration", time.Since(start)).
		Msg("Sync completed")

	return result, nil
}

// FoldCreated merges the server echo of a create into tx using the insert
// rule, or the update rule if the remote ID is already known locally.
func FoldCreated(ctx context.Context, tx store.Tx, rec remote.TransactionRecord, now time.Time) (*domain.Transaction, *Stats, error) {
	if err := checkIDs([]remote.TransactionRecord{rec}, "echo"); err != nil {
		return nil, nil, err
	}

	m, err := newMerger(ctx, tx, now)
	if err != nil {
		return nil, nil, err
	}
	e := m.resolve(rec, nil, placeTopLevel)
	if err := m.commit(); err != nil {
		return nil, nil, err
	}
	return e.Clone(), &m.stats, nil
}

// FoldUpdated merges the server echo of an update into the local entity
// localID using the update rule. The entity keeps its parent.
func FoldUpdated(ctx context.Context, tx store.Tx, localID string, rec remote.TransactionRecord, now time.Time) (*domain.Transaction, *Stats, error) {
	m, err := newMerger(ctx, tx, now)
	if err != nil {
		return nil, nil, err
	}

	target, ok := m.byID[localID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	if rec.ID.String() == "" {
		rec.ID = remote.FlexibleString(target.RemoteID)
	}
	if err := checkIDs([]remote.TransactionRecord{rec}, "echo"); err != nil {
		return nil, nil, err
	}
	// The echo must land on this entity even if a duplicate won the index.
	m.index[rec.ID.String()] = target

	e := m.resolve(rec, nil, placeKeep)
	if err := m.commit(); err != nil {
		return nil, nil, err
	}
	return e.Clone(), &m.stats, nil
}
