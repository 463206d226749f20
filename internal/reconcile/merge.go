package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/remote"
	"github.com/dvloznov/ledger-sync/internal/store"
)

// Stats counts what one merge did to the local store.
type Stats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	// Detached counts entities removed from a parent's item list.
	Detached int `json:"detached"`
	// Deleted counts detached items that were not claimed again and were removed.
	Deleted int `json:"deleted"`
}

// placement says where a resolved entity ends up relative to other entities.
type placement int

const (
	placeTopLevel placement = iota // the record was a top-level batch entry
	placeChild                     // the record was an invoice item
	placeKeep                      // leave the entity's parent untouched
)

// merger folds remote records into one open store transaction.
// All lookups go through working copies loaded once at the start, so
// entities touched twice in one batch see their own earlier changes.
type merger struct {
	ctx context.Context
	tx  store.Tx
	now time.Time
	log zerolog.Logger

	index map[string]*domain.Transaction // remote ID -> entity, first one wins
	byID  map[string]*domain.Transaction // local ID -> entity

	order   []string        // dirty local IDs in the order they were touched
	dirty   map[string]bool // membership for order
	claimed map[string]bool // placed by a record in this batch
	dropped map[string]string

	stats Stats
}

func newMerger(ctx context.Context, tx store.Tx, now time.Time) (*merger, error) {
	all, err := tx.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading local transactions: %w", err)
	}

	m := &merger{
		ctx:     ctx,
		tx:      tx,
		now:     now,
		log:     logger.FromContext(ctx),
		index:   make(map[string]*domain.Transaction, len(all)),
		byID:    make(map[string]*domain.Transaction, len(all)),
		dirty:   make(map[string]bool),
		claimed: make(map[string]bool),
		dropped: make(map[string]string),
	}

	// ListAll is ordered by CreatedAt then ID, which makes "first" stable.
	for _, t := range all {
		m.byID[t.ID] = t
		if !t.HasRemoteID() {
			continue
		}
		if kept, ok := m.index[t.RemoteID]; ok {
			m.log.Warn().
				Str("remote_id", t.RemoteID).
				Str("kept_id", kept.ID).
				Str("ignored_id", t.ID).
				Msg("Duplicate local transactions share a remote ID")
			continue
		}
		m.index[t.RemoteID] = t
	}

	return m, nil
}

// checkIDs walks records and their items and fails on the first one without an id.
func checkIDs(records []remote.TransactionRecord, path string) error {
	for i, rec := range records {
		at := fmt.Sprintf("%s[%d]", path, i)
		if rec.ID.String() == "" {
			return fmt.Errorf("record %s: %w", at, ErrMissingRemoteID)
		}
		if err := checkIDs(rec.InvoiceItems, at+".invoice_items"); err != nil {
			return err
		}
	}
	return nil
}

func (m *merger) touch(t *domain.Transaction) {
	if !m.dirty[t.ID] {
		m.dirty[t.ID] = true
		m.order = append(m.order, t.ID)
	}
}

// resolve applies the insert-or-update rule for rec and places the result.
// It returns nil when the record could not be placed.
func (m *merger) resolve(rec remote.TransactionRecord, parent *domain.Transaction, place placement) *domain.Transaction {
	remoteID := rec.ID.String()

	e, ok := m.index[remoteID]
	if ok {
		if place == placeChild && m.isSelfOrAncestor(e, parent) {
			m.log.Warn().
				Str("remote_id", remoteID).
				Str("parent_id", parent.ID).
				Msg("Ignoring invoice item that would own its own parent")
			return nil
		}
		applyUpdate(e, rec)
		m.stats.Updated++
	} else {
		e = newFromRecord(rec, m.now)
		m.index[remoteID] = e
		m.byID[e.ID] = e
		m.stats.Inserted++
	}
	m.touch(e)

	switch place {
	case placeTopLevel:
		m.detachFromParent(e)
		m.claimed[e.ID] = true
	case placeChild:
		if e.ParentID != parent.ID {
			m.detachFromParent(e)
			e.ParentID = parent.ID
		}
		m.claimed[e.ID] = true
	case placeKeep:
		m.claimed[e.ID] = true
	}

	// An update echo without invoice_items leaves an invoice's items alone.
	if place == placeKeep && rec.InvoiceItems == nil && e.Kind == domain.KindInvoice {
		return e
	}
	m.resolveItems(e, rec)
	return e
}

// resolveItems replaces e's item list with the resolved set of rec's items.
func (m *merger) resolveItems(e *domain.Transaction, rec remote.TransactionRecord) {
	previous := e.ItemIDs

	var resolved []string
	if e.Kind == domain.KindInvoice {
		seen := make(map[string]bool, len(rec.InvoiceItems))
		for _, item := range rec.InvoiceItems {
			child := m.resolve(item, e, placeChild)
			if child == nil || seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			resolved = append(resolved, child.ID)
		}
	} else if len(rec.InvoiceItems) > 0 {
		m.log.Info().
			Str("remote_id", rec.ID.String()).
			Str("kind", string(e.Kind)).
			Int("items", len(rec.InvoiceItems)).
			Msg("Ignoring invoice items on a non-invoice transaction")
	}

	keep := make(map[string]bool, len(resolved))
	for _, id := range resolved {
		keep[id] = true
	}
	for _, id := range previous {
		if keep[id] {
			continue
		}
		child, ok := m.byID[id]
		if !ok || child.ParentID != e.ID {
			continue
		}
		m.dropped[id] = e.ID
		m.stats.Detached++
	}

	e.ItemIDs = resolved
}

// detachFromParent removes e from its current parent's item list.
func (m *merger) detachFromParent(e *domain.Transaction) {
	if e.ParentID == "" {
		return
	}
	if parent, ok := m.byID[e.ParentID]; ok {
		before := len(parent.ItemIDs)
		parent.ItemIDs = store.RemoveID(parent.ItemIDs, e.ID)
		if len(parent.ItemIDs) != before {
			m.touch(parent)
			m.stats.Detached++
		}
	}
	e.ParentID = ""
}

func (m *merger) isSelfOrAncestor(e, parent *domain.Transaction) bool {
	for p, hops := parent, 0; p != nil && hops <= len(m.byID); hops++ {
		if p.ID == e.ID {
			return true
		}
		if p.ParentID == "" {
			return false
		}
		p = m.byID[p.ParentID]
	}
	return false
}

// commit saves every touched entity and deletes dropped items nobody claimed.
func (m *merger) commit() error {
	for _, id := range m.order {
		if err := m.tx.Save(m.ctx, m.byID[id]); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(m.dropped))
	for id := range m.dropped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, childID := range ids {
		child, ok := m.byID[childID]
		if !ok || m.claimed[childID] || child.ParentID != m.dropped[childID] {
			continue
		}
		err := m.tx.Delete(m.ctx, childID)
		if errors.Is(err, store.ErrNotFound) {
			continue // already removed with its own parent
		}
		if err != nil {
			return err
		}
		m.stats.Deleted++
		m.log.Debug().Str("id", childID).Str("remote_id", child.RemoteID).Msg("Deleted dropped invoice item")
	}
	return nil
}

// applyUpdate overwrites the mutable fields of e with rec.
// CreatedAt, ID and RemoteID are left alone; unparsable dates keep the old value.
func applyUpdate(e *domain.Transaction, rec remote.TransactionRecord) {
	e.Amount = rec.Amount.String()
	e.Kind = rec.Kind()
	if due, err := remote.ParseTimestamp(rec.DueDate); err == nil {
		e.DueDate = due
	}
	e.Description = rec.Description
	e.CategoryID = rec.CategoryID.String()
	e.CategoryName = rec.CategoryName
	e.Status = rec.Status
	e.PaymentMethodID = rec.PaymentMethodID.String()
	e.RecurringScheduleID = rec.RecurringScheduleID.String()
	if rec.PaidAt == "" {
		e.PaidAt = nil
	} else if paid, err := remote.ParseTimestamp(rec.PaidAt); err == nil {
		e.PaidAt = &paid
	}
}

// newFromRecord builds a new local entity. An unparsable due date becomes now.
func newFromRecord(rec remote.TransactionRecord, now time.Time) *domain.Transaction {
	e := domain.NewTransaction(now)
	e.RemoteID = rec.ID.String()
	e.DueDate = now
	applyUpdate(e, rec)
	return e
}
