package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dvloznov/ledger-sync/internal/domain"
)

// ErrNotFound is returned when a transaction ID is not in the store.
var ErrNotFound = errors.New("transaction not found")

// Store is the local transaction cache.
// Readers only ever see committed state.
type Store interface {
	// ListAll returns every transaction, line items included, ordered by
	// CreatedAt and then ID.
	ListAll(ctx context.Context) ([]*domain.Transaction, error)

	// ListTopLevel returns transactions without a parent, newest CreatedAt first.
	ListTopLevel(ctx context.Context) ([]*domain.Transaction, error)

	// Get returns the transaction with the given local ID or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Transaction, error)

	// WithinTx runs fn in a write transaction. Changes are committed once when
	// fn returns nil and discarded otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying resources.
	Close() error
}

// Tx is a scoped write transaction handed to WithinTx callbacks.
type Tx interface {
	ListAll(ctx context.Context) ([]*domain.Transaction, error)
	Get(ctx context.Context, id string) (*domain.Transaction, error)

	// Save inserts or replaces the transaction by local ID.
	Save(ctx context.Context, t *domain.Transaction) error

	// Delete removes the transaction and, recursively, every item it owns.
	// The ID is also dropped from its parent's item list.
	Delete(ctx context.Context, id string) error
}

// PersistenceError wraps failures of the storage backend.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SortByCreated orders txs by CreatedAt ascending, then ID.
func SortByCreated(txs []*domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return txs[i].ID < txs[j].ID
	})
}

// SortNewestFirst orders txs by CreatedAt descending, then ID.
func SortNewestFirst(txs []*domain.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID < txs[j].ID
	})
}

// TopLevel filters txs down to entries without a parent.
func TopLevel(txs []*domain.Transaction) []*domain.Transaction {
	out := make([]*domain.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.IsTopLevel() {
			out = append(out, t)
		}
	}
	return out
}

// RemoveID returns ids without id, preserving order.
func RemoveID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
