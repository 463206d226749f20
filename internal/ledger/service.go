// Package ledger creates, updates and deletes transactions on the remote
// ledger and folds the server's answer into the local store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/reconcile"
	"github.com/dvloznov/ledger-sync/internal/remote"
	"github.com/dvloznov/ledger-sync/internal/store"
)

// ErrNotConfirmed is returned when updating an entity the remote ledger has never seen.
var ErrNotConfirmed = errors.New("transaction has no remote ID")

// Gateway is the subset of the remote client the service writes through.
type Gateway interface {
	CreateTransaction(ctx context.Context, in remote.TransactionInput) (*remote.TransactionRecord, error)
	UpdateTransaction(ctx context.Context, remoteID string, in remote.TransactionInput) (*remote.TransactionRecord, error)
	DeleteTransaction(ctx context.Context, remoteID string) error
}

// Input holds the user-editable fields of a transaction.
type Input struct {
	Amount          string    `json:"amount"`
	Kind            string    `json:"type"`
	DueDate         time.Time `json:"due_date"`
	Description     string    `json:"description"`
	CategoryID      string    `json:"category_id,omitempty"`
	Status          string    `json:"status,omitempty"`
	PaymentMethodID string    `json:"payment_method_id,omitempty"`
}

// Validate checks the fields the remote ledger requires.
func (in Input) Validate() error {
	amount := strings.TrimSpace(in.Amount)
	if amount == "" {
		return &domain.ValidationError{Field: "amount", Reason: "is required"}
	}
	if _, err := decimal.NewFromString(amount); err != nil {
		return &domain.ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a decimal number", amount)}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &domain.ValidationError{Field: "description", Reason: "is required"}
	}
	if in.DueDate.IsZero() {
		return &domain.ValidationError{Field: "due_date", Reason: "is required"}
	}
	return nil
}

func (in Input) toRemote() remote.TransactionInput {
	return remote.TransactionInput{
		Amount:          strings.TrimSpace(in.Amount),
		Kind:            domain.NormalizeKind(in.Kind),
		DueDate:         in.DueDate,
		Description:     strings.TrimSpace(in.Description),
		CategoryID:      in.CategoryID,
		Status:          in.Status,
		PaymentMethodID: in.PaymentMethodID,
	}
}

// Listing is the top-level view of the local store with client-side totals.
type Listing struct {
	Transactions []*domain.Transaction `json:"transactions"`
	Totals       domain.Totals         `json:"totals"`
}

// Service writes through the remote ledger and keeps the local store in step.
type Service struct {
	gateway Gateway
	store   store.Store
	now     func() time.Time
}

// NewService creates a Service.
func NewService(gateway Gateway, st store.Store) *Service {
	return &Service{
		gateway: gateway,
		store:   st,
		now:     time.Now,
	}
}

// Create creates the transaction remotely and inserts the echo locally.
func (s *Service) Create(ctx context.Context, in Input) (*domain.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)

	rec, err := s.gateway.CreateTransaction(ctx, in.toRemote())
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	var created *domain.Transaction
	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		created, _, err = reconcile.FoldCreated(ctx, tx, *rec, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Create: storing echo: %w", err)
	}

	log.Info().
		Str("id", created.ID).
		Str("remote_id", created.RemoteID).
		Str("type", string(created.Kind)).
		Msg("Created transaction")

	return created, nil
}

// Update patches the remote transaction behind localID and folds the echo in place.
func (s *Service) Update(ctx context.Context, localID string, in Input) (*domain.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, localID)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if !existing.HasRemoteID() {
		return nil, fmt.Errorf("Update: %s: %w", localID, ErrNotConfirmed)
	}

	rec, err := s.gateway.UpdateTransaction(ctx, existing.RemoteID, in.toRemote())
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	var updated *domain.Transaction
	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		updated, _, err = reconcile.FoldUpdated(ctx, tx, localID, *rec, s.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Update: storing echo: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("id", updated.ID).
		Str("remote_id", updated.RemoteID).
		Msg("Updated transaction")

	return updated, nil
}

// Delete removes the transaction and the items it owns. Confirmed entities
// are deleted remotely first; the local copy goes only after that succeeds.
func (s *Service) Delete(ctx context.Context, localID string) error {
	existing, err := s.store.Get(ctx, localID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	if existing.HasRemoteID() {
		if err := s.gateway.DeleteTransaction(ctx, existing.RemoteID); err != nil {
			return fmt.Errorf("Delete: %w", err)
		}
	}

	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Delete(ctx, localID)
	})
	if err != nil {
		return fmt.Errorf("Delete: removing local copy: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("id", localID).
		Str("remote_id", existing.RemoteID).
		Int("items", len(existing.ItemIDs)).
		Msg("Deleted transaction")

	return nil
}

// List returns top-level transactions, newest first, with totals computed locally.
func (s *Service) List(ctx context.Context) (*Listing, error) {
	txs, err := s.store.ListTopLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return &Listing{
		Transactions: txs,
		Totals:       domain.ComputeTotals(txs),
	}, nil
}

// Items returns the line items of an invoice in their stored order.
func (s *Service) Items(ctx context.Context, localID string) ([]*domain.Transaction, error) {
	parent, err := s.store.Get(ctx, localID)
	if err != nil {
		return nil, fmt.Errorf("Items: %w", err)
	}

	items := make([]*domain.Transaction, 0, len(parent.ItemIDs))
	for _, id := range parent.ItemIDs {
		item, err := s.store.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("Items: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
