package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/ledger-sync/internal/domain"
)

// Filter narrows a transaction fetch. Zero values are left out of the query.
type Filter struct {
	Month           int    `json:"month,omitempty"`
	Year            int    `json:"year,omitempty"`
	CategoryID      string `json:"category_id,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// MonthFilter returns a filter for the month containing t.
func MonthFilter(t time.Time) *Filter {
	return &Filter{Month: int(t.Month()), Year: t.Year()}
}

// IsEmpty reports whether no field is set.
func (f *Filter) IsEmpty() bool {
	return f == nil || (f.Month == 0 && f.Year == 0 && f.CategoryID == "" && f.PaymentMethodID == "")
}

// Query serializes the set fields as query parameters.
func (f *Filter) Query() url.Values {
	q := url.Values{}
	if f == nil {
		return q
	}
	if f.Month != 0 {
		q.Set("month", strconv.Itoa(f.Month))
	}
	if f.Year != 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.CategoryID != "" {
		q.Set("category_id", f.CategoryID)
	}
	if f.PaymentMethodID != "" {
		q.Set("payment_method_id", f.PaymentMethodID)
	}
	return q
}

// FilterFromQuery is the inverse of Query. Unparsable numbers are reported.
func FilterFromQuery(q url.Values) (*Filter, error) {
	f := &Filter{
		CategoryID:      q.Get("category_id"),
		PaymentMethodID: q.Get("payment_method_id"),
	}
	var err error
	if v := q.Get("month"); v != "" {
		if f.Month, err = strconv.Atoi(v); err != nil || f.Month < 1 || f.Month > 12 {
			return nil, fmt.Errorf("invalid month %q", v)
		}
	}
	if v := q.Get("year"); v != "" {
		if f.Year, err = strconv.Atoi(v); err != nil || f.Year < 1 {
			return nil, fmt.Errorf("invalid year %q", v)
		}
	}
	return f, nil
}

// TransactionInput is the writable part of a transaction.
type TransactionInput struct {
	Amount          string
	Kind            domain.Kind
	DueDate         time.Time
	Description     string
	CategoryID      string
	Status          string
	PaymentMethodID string
}

type transactionAttributes struct {
	Amount          string `json:"amount"`
	Type            string `json:"type"`
	DueDate         string `json:"due_date"`
	Description     string `json:"description"`
	CategoryID      string `json:"category_id,omitempty"`
	Status          string `json:"status,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

type transactionRequest struct {
	Transaction transactionAttributes `json:"transaction"`
}

func newTransactionRequest(in TransactionInput) transactionRequest {
	return transactionRequest{Transaction: transactionAttributes{
		Amount:          in.Amount,
		Type:            string(domain.NormalizeKind(string(in.Kind))),
		DueDate:         FormatTimestamp(in.DueDate),
		Description:     in.Description,
		CategoryID:      in.CategoryID,
		Status:          in.Status,
		PaymentMethodID: in.PaymentMethodID,
	}}
}

// FetchTransactions fetches the transaction list, optionally filtered.
func (c *Client) FetchTransactions(ctx context.Context, filter *Filter) (*TransactionPage, error) {
	const op = "FetchTransactions"

	data, err := c.do(ctx, op, http.MethodGet, "/transactions", filter.Query(), nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	page, err := decodeTransactionPage(data)
	if err != nil {
		return nil, c.malformed(ctx, op, data, err)
	}
	return page, nil
}

// CreateTransaction creates a transaction remotely and returns the server's echo.
func (c *Client) CreateTransaction(ctx context.Context, in TransactionInput) (*TransactionRecord, error) {
	const op = "CreateTransaction"

	data, err := c.do(ctx, op, http.MethodPost, "/transactions", nil, newTransactionRequest(in))
	if err != nil {
		return nil, err
	}

	var rec TransactionRecord
	if err := c.decode(ctx, op, data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateTransaction patches the transaction with the given remote ID.
func (c *Client) UpdateTransaction(ctx context.Context, remoteID string, in TransactionInput) (*TransactionRecord, error) {
	const op = "UpdateTransaction"

	if strings.TrimSpace(remoteID) == "" {
		return nil, fmt.Errorf("%s: remote ID is required", op)
	}

	data, err := c.do(ctx, op, http.MethodPatch, "/transactions/"+url.PathEscape(remoteID), nil, newTransactionRequest(in))
	if err != nil {
		return nil, err
	}

	var rec TransactionRecord
	if err := c.decode(ctx, op, data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteTransaction deletes a transaction remotely. Any 2xx counts as success.
func (c *Client) DeleteTransaction(ctx context.Context, remoteID string) error {
	const op = "DeleteTransaction"

	if strings.TrimSpace(remoteID) == "" {
		return fmt.Errorf("%s: remote ID is required", op)
	}

	_, err := c.do(ctx, op, http.MethodDelete, "/transactions/"+url.PathEscape(remoteID), nil, nil)
	return err
}
