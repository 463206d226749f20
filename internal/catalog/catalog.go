// Package catalog serves categories and payment methods. Failures here are
// independent of transaction sync and are reported on their own.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
)

// Gateway is the subset of the remote client the catalog reads through.
type Gateway interface {
	ListCategories(ctx context.Context, name string) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name, parentID string) (*domain.Category, error)
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
}

// Categories searches and creates categories.
type Categories struct {
	gateway Gateway
}

// NewCategories creates a Categories service.
func NewCategories(gateway Gateway) *Categories {
	return &Categories{gateway: gateway}
}

// Search lists categories, filtered by name when it is long enough for the server to use.
func (c *Categories) Search(ctx context.Context, name string) ([]domain.Category, error) {
	cats, err := c.gateway.ListCategories(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("name", name).Int("results", len(cats)).Msg("Searched categories")
	return cats, nil
}

// Create creates a category, optionally nested under parentID.
func (c *Categories) Create(ctx context.Context, name, parentID string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "is required"}
	}

	cat, err := c.gateway.CreateCategory(ctx, name, parentID)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("category_id", cat.RemoteID).
		Str("name", cat.Name).
		Str("parent_id", cat.ParentID).
		Msg("Created category")
	return cat, nil
}

// PaymentMethods lists payment methods.
type PaymentMethods struct {
	gateway Gateway
}

// NewPaymentMethods creates a PaymentMethods service.
func NewPaymentMethods(gateway Gateway) *PaymentMethods {
	return &PaymentMethods{gateway: gateway}
}

// List returns every payment method.
func (p *PaymentMethods) List(ctx context.Context) ([]domain.PaymentMethod, error) {
	methods, err := p.gateway.ListPaymentMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return methods, nil
}

// TotalBalance sums the initial balances of methods per account type.
func TotalBalance(methods []domain.PaymentMethod) map[domain.PaymentMethodType]decimal.Decimal {
	out := make(map[domain.PaymentMethodType]decimal.Decimal, 2)
	for _, m := range methods {
		out[m.Type] = out[m.Type].Add(m.InitialBalance)
	}
	return out
}
