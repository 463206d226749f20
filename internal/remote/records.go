package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/shopspring/decimal"
)

// FlexibleString decodes a JSON string or number into its textual form.
// null and absent values decode to the empty string.
type FlexibleString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexibleString(n.String())
	return nil
}

// String returns the decoded text.
func (f FlexibleString) String() string { return string(f) }

// TransactionRecord is one transaction as the remote ledger sends it.
// InvoiceItems has the same shape; in practice only one level deep.
type TransactionRecord struct {
	ID                  FlexibleString      `json:"id"`
	Amount              FlexibleString      `json:"amount"`
	Type                string              `json:"type"`
	DueDate             string              `json:"due_date"`
	Description         string              `json:"description"`
	CategoryID          FlexibleString      `json:"category_id"`
	CategoryName        string              `json:"category_name"`
	Status              string              `json:"status"`
	PaymentMethodID     FlexibleString      `json:"payment_method_id"`
	RecurringScheduleID FlexibleString      `json:"recurring_schedule_id"`
	PaidAt              string              `json:"paid_at"`
	InvoiceItems        []TransactionRecord `json:"invoice_items"`
}

// UnmarshalJSON lower-cases type and defaults it to "expense" when missing.
func (r *TransactionRecord) UnmarshalJSON(data []byte) error {
	type plain TransactionRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	if p.Type == "" {
		p.Type = string(domain.KindExpense)
	}
	*r = TransactionRecord(p)
	return nil
}

// Kind returns the normalized transaction kind.
func (r *TransactionRecord) Kind() domain.Kind {
	return domain.NormalizeKind(r.Type)
}

// TransactionPage is the result of one fetch: the records plus the server
// computed aggregates, passed through untouched.
type TransactionPage struct {
	Transactions []TransactionRecord
	Total        string
	Pending      string
	// Shape records which decode attempt succeeded.
	Shape PageShape
}

// PageShape names the wire shape a page was decoded from.
type PageShape string

const (
	ShapeWrapped  PageShape = "wrapped"
	ShapeBareList PageShape = "bare_list"
)

const zeroAmount = "0.00"

type wrappedPage struct {
	Total        FlexibleString       `json:"total"`
	Pending      FlexibleString       `json:"pending"`
	Transactions *[]TransactionRecord `json:"transactions"`
}

// decodeTransactionPage tries the wrapped object first and the bare array
// second. The order is fixed; the wrapped error is reported when both fail.
func decodeTransactionPage(body []byte) (*TransactionPage, error) {
	var w wrappedPage
	wrappedErr := json.Unmarshal(body, &w)
	if wrappedErr == nil && w.Transactions != nil {
		return &TransactionPage{
			Transactions: *w.Transactions,
			Total:        orZero(w.Total.String()),
			Pending:      orZero(w.Pending.String()),
			Shape:        ShapeWrapped,
		}, nil
	}
	if wrappedErr == nil {
		wrappedErr = fmt.Errorf("object has no transactions field")
	}

	var bare []TransactionRecord
	if err := json.Unmarshal(body, &bare); err != nil || bare == nil {
		return nil, fmt.Errorf("decoding transaction page: %w", wrappedErr)
	}
	return &TransactionPage{
		Transactions: bare,
		Total:        zeroAmount,
		Pending:      zeroAmount,
		Shape:        ShapeBareList,
	}, nil
}

func orZero(s string) string {
	if strings.TrimSpace(s) == "" {
		return zeroAmount
	}
	return s
}

// ParseTimestamp parses the ISO-8601 timestamps the ledger emits, with or
// without fractional seconds, plus bare dates.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return t, nil
}

// FormatTimestamp renders t the way the ledger expects it: UTC with milliseconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

type categoryRecord struct {
	ID           FlexibleString `json:"id"`
	Name         string         `json:"name"`
	ParentID     FlexibleString `json:"parent_id"`
	IsPredefined bool           `json:"is_predefined"`
	UserID       FlexibleString `json:"user_id"`
}

func (c categoryRecord) toDomain() domain.Category {
	return domain.Category{
		RemoteID:     c.ID.String(),
		Name:         c.Name,
		ParentID:     c.ParentID.String(),
		IsPredefined: c.IsPredefined,
		UserID:       c.UserID.String(),
	}
}

// paymentMethodRecord accepts the balance under either initial_balance or balance.
type paymentMethodRecord struct {
	ID             FlexibleString      `json:"id"`
	Name           string              `json:"name"`
	Type           string              `json:"type"`
	InitialBalance decimal.NullDecimal `json:"initial_balance"`
	Balance        decimal.NullDecimal `json:"balance"`
}

func (p paymentMethodRecord) toDomain() domain.PaymentMethod {
	balance := decimal.Zero
	switch {
	case p.InitialBalance.Valid:
		balance = p.InitialBalance.Decimal
	case p.Balance.Valid:
		balance = p.Balance.Decimal
	}
	return domain.PaymentMethod{
		RemoteID:       p.ID.String(),
		Name:           p.Name,
		Type:           domain.NormalizePaymentMethodType(p.Type),
		InitialBalance: balance,
	}
}
