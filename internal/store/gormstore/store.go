// Package gormstore persists the local transaction cache in PostgreSQL.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/store"
)

// Store implements store.Store on top of gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL using dsn and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, &store.PersistenceError{Op: "Open", Err: err}
	}
	return New(ctx, db)
}

// New wraps an existing gorm connection and migrates the schema.
func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&transactionRow{}); err != nil {
		return nil, &store.PersistenceError{Op: "AutoMigrate", Err: err}
	}
	return &Store{db: db}, nil
}

// ListAll implements store.Store.
func (s *Store) ListAll(ctx context.Context) ([]*domain.Transaction, error) {
	return (&gormTx{db: s.db.WithContext(ctx)}).ListAll(ctx)
}

// ListTopLevel implements store.Store.
func (s *Store) ListTopLevel(ctx context.Context) ([]*domain.Transaction, error) {
	var rows []transactionRow
	err := s.db.WithContext(ctx).
		Where("parent_id = ?", "").
		Order("created_at DESC").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, &store.PersistenceError{Op: "ListTopLevel", Err: err}
	}
	return toDomainSlice(rows), nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	return (&gormTx{db: s.db.WithContext(ctx)}).Get(ctx, id)
}

// WithinTx implements store.Store. Errors returned by fn pass through
// unchanged; commit failures are wrapped in store.PersistenceError.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		fnErr = fn(&gormTx{db: db})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return &store.PersistenceError{Op: "WithinTx", Err: err}
}

// Close implements store.Store.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) ListAll(ctx context.Context) ([]*domain.Transaction, error) {
	var rows []transactionRow
	if err := t.db.Order("created_at").Order("id").Find(&rows).Error; err != nil {
		return nil, &store.PersistenceError{Op: "ListAll", Err: err}
	}
	return toDomainSlice(rows), nil
}

func (t *gormTx) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := t.find(id)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (t *gormTx) find(id string) (*transactionRow, error) {
	var row transactionRow
	err := t.db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "Get", Err: err}
	}
	return &row, nil
}

func (t *gormTx) Save(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.ID == "" {
		return &store.PersistenceError{Op: "Save", Err: fmt.Errorf("transaction ID is required")}
	}
	return t.upsert("Save", toRow(tx))
}

func (t *gormTx) upsert(op string, row *transactionRow) error {
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return &store.PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (t *gormTx) Delete(ctx context.Context, id string) error {
	row, err := t.find(id)
	if err != nil {
		return err
	}

	if row.ParentID != "" {
		parent, err := t.find(row.ParentID)
		switch {
		case err == nil:
			parent.ItemIDs = store.RemoveID(parent.ItemIDs, id)
			if err := t.upsert("Delete", parent); err != nil {
				return err
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
	}

	return t.deleteTree(row)
}

// deleteTree removes row and the items it owns, children first.
func (t *gormTx) deleteTree(row *transactionRow) error {
	for _, itemID := range row.ItemIDs {
		item, err := t.find(itemID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if item.ParentID != row.ID {
			continue
		}
		if err := t.deleteTree(item); err != nil {
			return err
		}
	}

	if err := t.db.Delete(&transactionRow{}, "id = ?", row.ID).Error; err != nil {
		return &store.PersistenceError{Op: "Delete", Err: err}
	}
	return nil
}

func toDomainSlice(rows []transactionRow) []*domain.Transaction {
	result := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toDomain())
	}
	return result
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
