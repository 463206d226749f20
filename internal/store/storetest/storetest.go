// Package storetest holds behaviour checks shared by every store.Store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/store"
)

// Run checks transaction and cascade semantics. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("commit is visible", func(t *testing.T) {
		s := newStore(t)
		parent, item := seed(t, s)

		top, err := s.ListTopLevel(context.Background())
		if err != nil || len(top) != 1 || top[0].ID != parent.ID {
			t.Fatalf("ListTopLevel = %v, %v", top, err)
		}
		got, err := s.Get(context.Background(), parent.ID)
		if err != nil || len(got.ItemIDs) != 1 || got.ItemIDs[0] != item.ID {
			t.Errorf("Get = %+v, %v", got, err)
		}
	})

	t.Run("failed callback rolls back save and delete", func(t *testing.T) {
		s := newStore(t)
		parent, item := seed(t, s)

		boom := errors.New("boom")
		err := s.WithinTx(context.Background(), func(tx store.Tx) error {
			p, err := tx.Get(context.Background(), parent.ID)
			if err != nil {
				return err
			}
			p.Amount = "999.00"
			if err := tx.Save(context.Background(), p); err != nil {
				return err
			}
			if err := tx.Delete(context.Background(), item.ID); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected callback error, got %v", err)
		}

		got, err := s.Get(context.Background(), parent.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Amount == "999.00" || len(got.ItemIDs) != 1 {
			t.Errorf("rolled back change is visible: %+v", got)
		}
		if _, err := s.Get(context.Background(), item.ID); err != nil {
			t.Errorf("rolled back delete removed item: %v", err)
		}
	})

	t.Run("delete cascades to items", func(t *testing.T) {
		s := newStore(t)
		parent, item := seed(t, s)

		err := s.WithinTx(context.Background(), func(tx store.Tx) error {
			return tx.Delete(context.Background(), parent.ID)
		})
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		for _, id := range []string{parent.ID, item.ID} {
			if _, err := s.Get(context.Background(), id); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("expected %s to be gone, got %v", id, err)
			}
		}
	})

	t.Run("deleting an item detaches it", func(t *testing.T) {
		s := newStore(t)
		parent, item := seed(t, s)

		err := s.WithinTx(context.Background(), func(tx store.Tx) error {
			return tx.Delete(context.Background(), item.ID)
		})
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		got, err := s.Get(context.Background(), parent.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.ItemIDs) != 0 {
			t.Errorf("ItemIDs = %v, want none", got.ItemIDs)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get: expected ErrNotFound, got %v", err)
		}
		err := s.WithinTx(context.Background(), func(tx store.Tx) error {
			return tx.Delete(context.Background(), "missing")
		})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Delete: expected ErrNotFound, got %v", err)
		}
	})
}

func seed(t *testing.T, s store.Store) (parent, item *domain.Transaction) {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	parent = domain.NewTransaction(now)
	parent.Kind = domain.KindInvoice
	parent.Amount = "50.00"
	item = domain.NewTransaction(now.Add(time.Second))
	item.ParentID = parent.ID
	parent.ItemIDs = []string{item.ID}

	err := s.WithinTx(context.Background(), func(tx store.Tx) error {
		if err := tx.Save(context.Background(), parent); err != nil {
			return err
		}
		return tx.Save(context.Background(), item)
	})
	if err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
	return parent, item
}
