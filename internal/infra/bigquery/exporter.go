// Package bigquery exports snapshots of the local ledger for analytics.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// rowInserter is satisfied by *bigquery.Inserter.
type rowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// SnapshotExporter appends the whole local ledger to a table on every call.
type SnapshotExporter struct {
	client   *bigquery.Client
	handle   *bigquery.Table
	inserter rowInserter
	table    string // project.dataset.table, for queries
}

// NewSnapshotExporter creates an exporter writing to project.dataset.table.
func NewSnapshotExporter(ctx context.Context, projectID, datasetID, tableID string) (*SnapshotExporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewSnapshotExporter: bigquery client: %w", err)
	}
	handle := client.DatasetInProject(projectID, datasetID).Table(tableID)
	return &SnapshotExporter{
		client:   client,
		handle:   handle,
		inserter: handle.Inserter(),
		table:    fmt.Sprintf("%s.%s.%s", projectID, datasetID, tableID),
	}, nil
}

// SnapshotSchema is the table schema inferred from LedgerRow.
func SnapshotSchema() (bigquery.Schema, error) {
	return bigquery.InferSchema(LedgerRow{})
}

// EnsureTable creates the snapshot table, partitioned by day of sync, when
// it does not exist. It reports whether the table was created.
func (e *SnapshotExporter) EnsureTable(ctx context.Context) (bool, error) {
	_, err := e.handle.Metadata(ctx)
	if err == nil {
		return false, nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return false, fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := SnapshotSchema()
	if err != nil {
		return false, fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	err = e.handle.Create(ctx, &bigquery.TableMetadata{
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Field: "synced_ts"},
	})
	if err != nil {
		return false, fmt.Errorf("EnsureTable: creating table: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("table", e.table).Msg("Created snapshot table")
	return true, nil
}

// Close closes the BigQuery client connection.
func (e *SnapshotExporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Export inserts one snapshot of txs and returns its snapshot ID.
// Rows with unparsable amounts are skipped and logged.
func (e *SnapshotExporter) Export(ctx context.Context, txs []*domain.Transaction, syncedAt time.Time) (string, error) {
	log := logger.FromContext(ctx)
	snapshotID := uuid.NewString()

	rows := make([]*LedgerRow, 0, len(txs))
	for _, t := range txs {
		row, err := NewLedgerRow(snapshotID, t, syncedAt)
		if err != nil {
			log.Warn().Err(err).Str("local_id", t.ID).Msg("Skipping transaction in snapshot")
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return snapshotID, nil
	}

	if err := e.inserter.Put(ctx, rows); err != nil {
		return "", fmt.Errorf("Export: inserting rows: %w", err)
	}

	log.Info().
		Str("snapshot_id", snapshotID).
		Int("rows", len(rows)).
		Msg("Exported ledger snapshot")
	return snapshotID, nil
}

// LastSyncedAt returns the time of the most recent snapshot, or the zero
// time when the table is empty.
func (e *SnapshotExporter) LastSyncedAt(ctx context.Context) (time.Time, error) {
	q := e.client.Query(fmt.Sprintf("SELECT MAX(synced_ts) AS last_synced FROM `%s`", e.table))
	it, err := q.Read(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("LastSyncedAt: running query: %w", err)
	}

	var row struct {
		LastSynced bigquery.NullTimestamp `bigquery:"last_synced"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("LastSyncedAt: reading row: %w", err)
	}
	if !row.LastSynced.Valid {
		return time.Time{}, nil
	}
	return row.LastSynced.Timestamp, nil
}
