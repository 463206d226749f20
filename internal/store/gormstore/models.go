package gormstore

import (
	"time"

	"github.com/dvloznov/ledger-sync/internal/domain"
)

// transactionRow is the persisted form of domain.Transaction.
// Item order lives on the parent as a JSON array of local IDs.
type transactionRow struct {
	ID                  string     `gorm:"primaryKey;size:36"`
	RemoteID            string     `gorm:"size:64;index"`
	Amount              string     `gorm:"size:32;not null"`
	Kind                string     `gorm:"size:16;not null"`
	DueDate             time.Time  `gorm:"index"`
	PaidAt              *time.Time
	Description         string     `gorm:"type:text"`
	CategoryID          string     `gorm:"size:64"`
	CategoryName        string     `gorm:"size:255"`
	Status              string     `gorm:"size:32"`
	PaymentMethodID     string     `gorm:"size:64"`
	RecurringScheduleID string     `gorm:"size:64"`
	ParentID            string     `gorm:"size:36;index"`
	ItemIDs             []string   `gorm:"serializer:json"`
	CreatedAt           time.Time  `gorm:"index"`
}

// TableName overrides the default pluralized name.
func (transactionRow) TableName() string {
	return "transaction_rows"
}

func toRow(t *domain.Transaction) *transactionRow {
	return &transactionRow{
		ID:                  t.ID,
		RemoteID:            t.RemoteID,
		Amount:              t.Amount,
		Kind:                string(t.Kind),
		DueDate:             t.DueDate,
		PaidAt:              t.PaidAt,
		Description:         t.Description,
		CategoryID:          t.CategoryID,
		CategoryName:        t.CategoryName,
		Status:              t.Status,
		PaymentMethodID:     t.PaymentMethodID,
		RecurringScheduleID: t.RecurringScheduleID,
		ParentID:            t.ParentID,
		ItemIDs:             append([]string(nil), t.ItemIDs...),
		CreatedAt:           t.CreatedAt,
	}
}

func (r *transactionRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:                  r.ID,
		RemoteID:            r.RemoteID,
		Amount:              r.Amount,
		Kind:                domain.NormalizeKind(r.Kind),
		DueDate:             r.DueDate,
		PaidAt:              r.PaidAt,
		Description:         r.Description,
		CategoryID:          r.CategoryID,
		CategoryName:        r.CategoryName,
		Status:              r.Status,
		PaymentMethodID:     r.PaymentMethodID,
		RecurringScheduleID: r.RecurringScheduleID,
		ParentID:            r.ParentID,
		ItemIDs:             r.ItemIDs,
		CreatedAt:           r.CreatedAt,
	}
}
