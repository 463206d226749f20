package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dvloznov/ledger-sync/internal/api/middleware"
	"github.com/dvloznov/ledger-sync/internal/catalog"
	"github.com/dvloznov/ledger-sync/internal/domain"
)

// CategoryService is implemented by *catalog.Categories.
type CategoryService interface {
	Search(ctx context.Context, name string) ([]domain.Category, error)
	Create(ctx context.Context, name, parentID string) (*domain.Category, error)
}

// PaymentMethodService is implemented by *catalog.PaymentMethods.
type PaymentMethodService interface {
	List(ctx context.Context) ([]domain.PaymentMethod, error)
}

// CatalogHandler handles category and payment method endpoints.
type CatalogHandler struct {
	categories CategoryService
	methods    PaymentMethodService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(categories CategoryService, methods PaymentMethodService) *CatalogHandler {
	return &CatalogHandler{categories: categories, methods: methods}
}

// ListCategories handles GET /api/categories?name=
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.Search(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeOpError(w, r, "Failed to list categories", err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": cats,
		"count":      len(cats),
	})
}

// CreateCategory handles POST /api/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cat, err := h.categories.Create(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeOpError(w, r, "Failed to create category", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, cat)
}

// ListPaymentMethods handles GET /api/payment-methods
func (h *CatalogHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.methods.List(r.Context())
	if err != nil {
		writeOpError(w, r, "Failed to list payment methods", err)
		return
	}

	balances := make(map[string]string)
	for typ, total := range catalog.TotalBalance(methods) {
		balances[string(typ)] = total.StringFixed(2)
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payment_methods": methods,
		"balances":        balances,
		"count":           len(methods),
	})
}
