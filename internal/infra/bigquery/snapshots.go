package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerRow is one transaction in a ledger snapshot table.
type LedgerRow struct {
	SnapshotID string `bigquery:"snapshot_id"` // REQUIRED
	LocalID    string `bigquery:"local_id"`    // REQUIRED

	RemoteID bigquery.NullString `bigquery:"remote_id"` // NULLABLE
	ParentID bigquery.NullString `bigquery:"parent_id"` // NULLABLE, set for invoice items

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC
	Kind   string   `bigquery:"kind"`   // REQUIRED

	DueDate civil.Date             `bigquery:"due_date"` // REQUIRED
	PaidAt  bigquery.NullTimestamp `bigquery:"paid_at"`  // NULLABLE

	Description     string              `bigquery:"description"`
	CategoryID      bigquery.NullString `bigquery:"category_id"`
	CategoryName    bigquery.NullString `bigquery:"category_name"`
	Status          bigquery.NullString `bigquery:"status"`
	PaymentMethodID bigquery.NullString `bigquery:"payment_method_id"`
	IsOverdue       bool                `bigquery:"is_overdue"`

	ItemCount int64 `bigquery:"item_count"`

	CreatedTS time.Time `bigquery:"created_ts"`
	SyncedTS  time.Time `bigquery:"synced_ts"` // REQUIRED
}

// NewLedgerRow converts a local transaction into a snapshot row.
func NewLedgerRow(snapshotID string, t *domain.Transaction, syncedAt time.Time) (*LedgerRow, error) {
	amount, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("NewLedgerRow: transaction %s has invalid amount %q: %w", t.ID, t.Amount, err)
	}

	row := &LedgerRow{
		SnapshotID:      snapshotID,
		LocalID:         t.ID,
		RemoteID:        nullString(t.RemoteID),
		ParentID:        nullString(t.ParentID),
		Amount:          amount.Rat(),
		Kind:            string(t.Kind),
		DueDate:         civil.DateOf(t.DueDate),
		Description:     t.Description,
		CategoryID:      nullString(t.CategoryID),
		CategoryName:    nullString(t.CategoryName),
		Status:          nullString(t.Status),
		PaymentMethodID: nullString(t.PaymentMethodID),
		IsOverdue:       t.IsOverdue(syncedAt),
		ItemCount:       int64(len(t.ItemIDs)),
		CreatedTS:       t.CreatedAt,
		SyncedTS:        syncedAt,
	}
	if t.PaidAt != nil {
		row.PaidAt = bigquery.NullTimestamp{Timestamp: *t.PaidAt, Valid: true}
	}
	return row, nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
