package bigquery

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-sync/internal/domain"
)

type mockInserter struct {
	PutFunc func(ctx context.Context, src interface{}) error
}

func (m *mockInserter) Put(ctx context.Context, src interface{}) error {
	return m.PutFunc(ctx, src)
}

func TestNewLedgerRow(t *testing.T) {
	synced := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	paid := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		tx      *domain.Transaction
		check   func(t *testing.T, row *LedgerRow)
		wantErr bool
	}{
		{
			name: "invoice with items",
			tx: &domain.Transaction{
				ID: "l1", RemoteID: "1", Amount: "150.00", Kind: domain.KindInvoice,
				DueDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Status: "pending",
				ItemIDs: []string{"a", "b"},
			},
			check: func(t *testing.T, row *LedgerRow) {
				if row.Amount.Cmp(big.NewRat(150, 1)) != 0 {
					t.Errorf("Amount = %v", row.Amount)
				}
				if row.DueDate != (civil.Date{Year: 2025, Month: 1, Day: 1}) {
					t.Errorf("DueDate = %v", row.DueDate)
				}
				if !row.RemoteID.Valid || row.ParentID.Valid || row.CategoryID.Valid {
					t.Errorf("unexpected nullables: %+v", row)
				}
				if row.ItemCount != 2 || !row.IsOverdue {
					t.Errorf("ItemCount = %d, IsOverdue = %v", row.ItemCount, row.IsOverdue)
				}
			},
		},
		{
			name: "paid item",
			tx: &domain.Transaction{
				ID: "l2", ParentID: "l1", Amount: "-12.345", Kind: domain.KindExpense,
				DueDate: synced, PaidAt: &paid, Status: "paid",
			},
			check: func(t *testing.T, row *LedgerRow) {
				if row.Amount.Cmp(big.NewRat(-12345, 1000)) != 0 {
					t.Errorf("Amount = %v", row.Amount)
				}
				if !row.PaidAt.Valid || !row.PaidAt.Timestamp.Equal(paid) {
					t.Errorf("PaidAt = %+v", row.PaidAt)
				}
				if row.RemoteID.Valid || row.ParentID.StringVal != "l1" || row.IsOverdue {
					t.Errorf("unexpected row: %+v", row)
				}
			},
		},
		{
			name:    "invalid amount",
			tx:      &domain.Transaction{ID: "l3", Amount: "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := NewLedgerRow("snap", tt.tx, synced)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLedgerRow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, row)
			}
		})
	}
}

func TestSnapshotExporter_Export(t *testing.T) {
	var got []*LedgerRow
	e := &SnapshotExporter{inserter: &mockInserter{
		PutFunc: func(ctx context.Context, src interface{}) error {
			got = src.([]*LedgerRow)
			return nil
		},
	}}

	txs := []*domain.Transaction{
		{ID: "a", Amount: "10.00", Kind: domain.KindIncome},
		{ID: "b", Amount: "oops"},
		{ID: "c", Amount: "5", Kind: domain.KindExpense},
	}
	id, err := e.Export(context.Background(), txs, time.Now())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(got) != 2 || got[0].LocalID != "a" || got[1].LocalID != "c" {
		t.Fatalf("inserted rows = %+v", got)
	}
	for _, row := range got {
		if row.SnapshotID != id {
			t.Errorf("row snapshot %q, want %q", row.SnapshotID, id)
		}
	}
}

func TestSnapshotExporter_ExportErrors(t *testing.T) {
	calls := 0
	e := &SnapshotExporter{inserter: &mockInserter{
		PutFunc: func(ctx context.Context, src interface{}) error {
			calls++
			return errors.New("quota exceeded")
		},
	}}

	if _, err := e.Export(context.Background(), nil, time.Now()); err != nil {
		t.Errorf("empty export should not fail: %v", err)
	}
	if calls != 0 {
		t.Errorf("empty export called Put %d times", calls)
	}
	if _, err := e.Export(context.Background(), []*domain.Transaction{{ID: "a", Amount: "1"}}, time.Now()); err == nil {
		t.Error("expected insert error")
	}
}

func TestSnapshotSchema(t *testing.T) {
	schema, err := SnapshotSchema()
	if err != nil {
		t.Fatalf("SnapshotSchema failed: %v", err)
	}

	want := map[string]bigquery.FieldType{
		"amount":    bigquery.NumericFieldType,
		"due_date":  bigquery.DateFieldType,
		"paid_at":   bigquery.TimestampFieldType,
		"remote_id": bigquery.StringFieldType,
		"synced_ts": bigquery.TimestampFieldType,
	}
	found := 0
	for _, f := range schema {
		typ, ok := want[f.Name]
		if !ok {
			continue
		}
		found++
		if f.Type != typ {
			t.Errorf("field %s type = %s, want %s", f.Name, f.Type, typ)
		}
		if f.Name == "remote_id" && f.Required {
			t.Error("remote_id should be nullable")
		}
	}
	if found != len(want) {
		t.Errorf("found %d of %d expected fields", found, len(want))
	}
}
