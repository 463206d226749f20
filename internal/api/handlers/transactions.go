package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dvloznov/ledger-sync/internal/api/middleware"
	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/ledger"
)

// LedgerService is implemented by *ledger.Service.
type LedgerService interface {
	List(ctx context.Context) (*ledger.Listing, error)
	Items(ctx context.Context, localID string) ([]*domain.Transaction, error)
	Create(ctx context.Context, in ledger.Input) (*domain.Transaction, error)
	Update(ctx context.Context, localID string, in ledger.Input) (*domain.Transaction, error)
	Delete(ctx context.Context, localID string) error
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	svc LedgerService
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc LedgerService) *TransactionsHandler {
	return &TransactionsHandler{svc: svc}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.List(r.Context())
	if err != nil {
		writeOpError(w, r, "Failed to list transactions", err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": listing.Transactions,
		"totals":       listing.Totals,
		"count":        len(listing.Transactions),
	})
}

// ListItems handles GET /api/transactions/{id}/items
func (h *TransactionsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Items(r.Context(), r.PathValue("id"))
	if err != nil {
		writeOpError(w, r, "Failed to list invoice items", err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in ledger.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeOpError(w, r, "Failed to create transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, t)
}

// UpdateTransaction handles PATCH /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in ledger.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.svc.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeOpError(w, r, "Failed to update transaction", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeOpError(w, r, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
