package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the normalized transaction type.
type Kind string

const (
	// KindIncome is money coming in.
	KindIncome Kind = "income"
	// KindExpense is money going out. Unknown kinds fall back to it.
	KindExpense Kind = "expense"
	// KindInvoice is a bill that may own line items.
	KindInvoice Kind = "invoice"
)

// NormalizeKind lower-cases raw and matches it against the known kinds.
// Anything unrecognized, including the empty string, becomes KindExpense.
func NormalizeKind(raw string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindIncome:
		return KindIncome
	case KindInvoice:
		return KindInvoice
	default:
		return KindExpense
	}
}

// Transaction is one locally cached ledger entry.
//
// Invoice line items are modelled as an arena: the parent owns the ordered
// ItemIDs, and every item points back to its parent through ParentID. Both
// sides hold local IDs, never pointers.
type Transaction struct {
	// ID is the local identifier, assigned once when the entity is built.
	ID string `json:"id"`

	// RemoteID is issued by the remote ledger. Empty means the entity was
	// created locally and has not been confirmed yet.
	RemoteID string `json:"remote_id,omitempty"`

	Amount              string     `json:"amount"` // decimal string, kept verbatim
	Kind                Kind       `json:"type"`
	DueDate             time.Time  `json:"due_date"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
	Description         string     `json:"description"`
	CategoryID          string     `json:"category_id,omitempty"`
	CategoryName        string     `json:"category_name,omitempty"` // display cache of the category name at sync time
	Status              string     `json:"status,omitempty"`        // free text: "pending", "paid", "overdue", ...
	PaymentMethodID     string     `json:"payment_method_id,omitempty"`
	RecurringScheduleID string     `json:"recurring_schedule_id,omitempty"`

	ParentID string   `json:"parent_id,omitempty"`      // owning invoice, empty for top-level entries
	ItemIDs  []string `json:"invoice_item_ids,omitempty"` // owned line items, only for KindInvoice

	CreatedAt time.Time `json:"created_at"`
}

// NewTransaction builds a transaction with a fresh local ID and CreatedAt set to now.
func NewTransaction(now time.Time) *Transaction {
	return &Transaction{
		ID:        uuid.New().String(),
		Kind:      KindExpense,
		CreatedAt: now,
	}
}

// IsTopLevel reports whether the transaction has no parent invoice.
func (t *Transaction) IsTopLevel() bool {
	return t.ParentID == ""
}

// HasRemoteID reports whether the remote ledger has confirmed this entity.
func (t *Transaction) HasRemoteID() bool {
	return t.RemoteID != ""
}

// Clone returns a deep copy so stores can hand out values without sharing slices.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.ItemIDs != nil {
		c.ItemIDs = append([]string(nil), t.ItemIDs...)
	}
	if t.PaidAt != nil {
		p := *t.PaidAt
		c.PaidAt = &p
	}
	return &c
}

// IsOverdue reports whether an unpaid transaction is due before the start of today.
func (t *Transaction) IsOverdue(now time.Time) bool {
	if strings.EqualFold(t.Status, "paid") {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dy, dm, dd := t.DueDate.In(now.Location()).Date()
	due := time.Date(dy, dm, dd, 0, 0, 0, 0, now.Location())
	return due.Before(today)
}

// Badge labels a transaction the way list rows show it.
type Badge string

const (
	BadgePaid    Badge = "PAID"
	BadgeOverdue Badge = "OVERDUE"
	BadgePending Badge = "PENDING"
)

// Badge returns the row badge for t at the given moment.
func (t *Transaction) Badge(now time.Time) Badge {
	switch {
	case strings.EqualFold(t.Status, "paid"):
		return BadgePaid
	case t.IsOverdue(now):
		return BadgeOverdue
	default:
		return BadgePending
	}
}

// BadgeText is the badge as list rows print it. Paid rows with a known
// payment date read "PAID at Jan 3", in now's location.
func (t *Transaction) BadgeText(now time.Time) string {
	b := t.Badge(now)
	if b == BadgePaid && t.PaidAt != nil {
		return fmt.Sprintf("%s at %s", b, t.PaidAt.In(now.Location()).Format("Jan 2"))
	}
	return string(b)
}
