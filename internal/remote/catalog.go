package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/ledger-sync/internal/domain"
)

// MinCategorySearchLength is the shortest name filter sent to the ledger.
const MinCategorySearchLength = 3

type categoryRequest struct {
	TransactionCategory struct {
		Name     string `json:"name"`
		ParentID string `json:"parent_id,omitempty"`
	} `json:"transaction_category"`
}

// ListCategories lists categories. name is only sent when it has at least
// MinCategorySearchLength characters.
func (c *Client) ListCategories(ctx context.Context, name string) ([]domain.Category, error) {
	const op = "ListCategories"

	q := url.Values{}
	if name = strings.TrimSpace(name); utf8.RuneCountInString(name) >= MinCategorySearchLength {
		q.Set("name", name)
	}

	data, err := c.do(ctx, op, http.MethodGet, "/transaction_categories", q, nil)
	if err != nil {
		return nil, err
	}

	var records []categoryRecord
	if err := c.decode(ctx, op, data, &records); err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(records))
	for _, r := range records {
		categories = append(categories, r.toDomain())
	}
	return categories, nil
}

// CreateCategory creates a category, optionally under a parent.
func (c *Client) CreateCategory(ctx context.Context, name, parentID string) (*domain.Category, error) {
	const op = "CreateCategory"

	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%s: name is required", op)
	}

	var req categoryRequest
	req.TransactionCategory.Name = strings.TrimSpace(name)
	req.TransactionCategory.ParentID = parentID

	data, err := c.do(ctx, op, http.MethodPost, "/transaction_categories", nil, req)
	if err != nil {
		return nil, err
	}

	var rec categoryRecord
	if err := c.decode(ctx, op, data, &rec); err != nil {
		return nil, err
	}
	cat := rec.toDomain()
	return &cat, nil
}

// ListPaymentMethods lists the user's payment methods.
func (c *Client) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	const op = "ListPaymentMethods"

	data, err := c.do(ctx, op, http.MethodGet, "/payment_methods", nil, nil)
	if err != nil {
		return nil, err
	}

	var records []paymentMethodRecord
	if err := c.decode(ctx, op, data, &records); err != nil {
		return nil, err
	}

	methods := make([]domain.PaymentMethod, 0, len(records))
	for _, r := range records {
		methods = append(methods, r.toDomain())
	}
	return methods, nil
}
