package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/store"
)

// Store is an in-memory implementation of store.Store.
// Write transactions work on a private copy of the committed snapshot and
// swap it in on success, so readers never observe partial state.
// Data is lost on restart; use gormstore for persistence.
type Store struct {
	writeMu sync.Mutex // serializes WithinTx
	mu      sync.RWMutex
	txs     map[string]*domain.Transaction
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		txs: make(map[string]*domain.Transaction),
	}
}

// ListAll implements store.Store.
func (s *Store) ListAll(ctx context.Context) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAll(s.txs), nil
}

// ListTopLevel implements store.Store.
func (s *Store) ListTopLevel(ctx context.Context) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := store.TopLevel(listAll(s.txs))
	store.SortNewestFirst(result)
	return result, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(s.txs, id)
}

// WithinTx implements store.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	working := make(map[string]*domain.Transaction, len(s.txs))
	for id, t := range s.txs {
		working[id] = t.Clone()
	}
	s.mu.RUnlock()

	tx := &memTx{txs: working}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.txs = working
	s.mu.Unlock()
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

type memTx struct {
	txs map[string]*domain.Transaction
}

func (t *memTx) ListAll(ctx context.Context) ([]*domain.Transaction, error) {
	return listAll(t.txs), nil
}

func (t *memTx) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	return get(t.txs, id)
}

func (t *memTx) Save(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.ID == "" {
		return &store.PersistenceError{Op: "Save", Err: fmt.Errorf("transaction ID is required")}
	}
	t.txs[tx.ID] = tx.Clone()
	return nil
}

func (t *memTx) Delete(ctx context.Context, id string) error {
	target, ok := t.txs[id]
	if !ok {
		return store.ErrNotFound
	}
	if parent, ok := t.txs[target.ParentID]; ok && target.ParentID != "" {
		parent.ItemIDs = store.RemoveID(parent.ItemIDs, id)
	}
	t.deleteTree(id)
	return nil
}

// deleteTree removes id and everything it owns.
func (t *memTx) deleteTree(id string) {
	target, ok := t.txs[id]
	if !ok {
		return
	}
	delete(t.txs, id)
	for _, itemID := range target.ItemIDs {
		if item, ok := t.txs[itemID]; ok && item.ParentID == id {
			t.deleteTree(itemID)
		}
	}
}

func listAll(txs map[string]*domain.Transaction) []*domain.Transaction {
	result := make([]*domain.Transaction, 0, len(txs))
	for _, t := range txs {
		result = append(result, t.Clone())
	}
	store.SortByCreated(result)
	return result
}

func get(txs map[string]*domain.Transaction, id string) (*domain.Transaction, error) {
	t, ok := txs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t.Clone(), nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
