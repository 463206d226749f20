package gormstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/store"
	"github.com/dvloznov/ledger-sync/internal/store/storetest"
)

func TestRowMapping(t *testing.T) {
	paid := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	in := &domain.Transaction{
		ID:           "local-1",
		RemoteID:     "42",
		Amount:       "150.00",
		Kind:         domain.KindInvoice,
		DueDate:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		PaidAt:       &paid,
		Description:  "Rent",
		CategoryName: "Housing",
		Status:       "paid",
		ItemIDs:      []string{"a", "b"},
		CreatedAt:    time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
	}

	row := toRow(in)
	if row.TableName() != "transaction_rows" {
		t.Errorf("TableName = %q", row.TableName())
	}
	in.ItemIDs[0] = "mutated"
	if row.ItemIDs[0] != "a" {
		t.Error("toRow shares the ItemIDs slice")
	}

	out := row.toDomain()
	if out.Kind != domain.KindInvoice || out.RemoteID != "42" || !out.PaidAt.Equal(paid) {
		t.Errorf("unexpected round trip: %+v", out)
	}
	if len(out.ItemIDs) != 2 || out.ItemIDs[1] != "b" {
		t.Errorf("ItemIDs = %v", out.ItemIDs)
	}
}

// TestStore_Postgres runs the shared store checks against a real database
// when LEDGER_TEST_DATABASE_URL is set. CI without Postgres skips it; the same
// checks always run against the in-memory store.
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	storetest.Run(t, func(t *testing.T) store.Store {
		if err := s.db.Exec("DELETE FROM transaction_rows").Error; err != nil {
			t.Fatalf("cleanup failed: %v", err)
		}
		return s
	})
}
