// Package notionsync mirrors the local ledger into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/jomei/notionapi"
)

// Options control a mirror run.
type Options struct {
	DryRun bool
	// Prune archives pages whose Remote ID no longer exists locally.
	Prune bool
}

// Stats counts what a mirror run did, or would do in dry-run mode.
type Stats struct {
	Created  int
	Updated  int
	Archived int
	Skipped  int
	Failed   int
}

// Mirror pushes top-level transactions to the Notion database.
// Pages are matched by their Remote ID property; transactions the remote
// ledger has not confirmed yet are skipped. Failures on individual pages are
// logged and counted, and do not stop the run.
func Mirror(ctx context.Context, notion NotionService, databaseID string, txs []*domain.Transaction, opts Options) (*Stats, error) {
	log := logger.FromContext(ctx)
	stats := &Stats{}

	log.Info().
		Int("transactions", len(txs)).
		Bool("dry_run", opts.DryRun).
		Bool("prune", opts.Prune).
		Msg("Starting Notion mirror")

	pages, err := queryAllNotionPages(ctx, notion, databaseID)
	if err != nil {
		return nil, fmt.Errorf("Mirror: querying Notion pages: %w", err)
	}

	pageByRemoteID := make(map[string]string, len(pages))
	for _, page := range pages {
		remoteID := extractRemoteID(page)
		if remoteID == "" {
			continue
		}
		if _, dup := pageByRemoteID[remoteID]; dup {
			log.Warn().Str("remote_id", remoteID).Str("page_id", string(page.ID)).Msg("Duplicate Notion page for remote ID")
			continue
		}
		pageByRemoteID[remoteID] = string(page.ID)
	}

	local := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if !tx.IsTopLevel() || !tx.HasRemoteID() {
			stats.Skipped++
			continue
		}
		local[tx.RemoteID] = true

		pageID, exists := pageByRemoteID[tx.RemoteID]
		if opts.DryRun {
			if exists {
				log.Info().Str("remote_id", tx.RemoteID).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
				stats.Updated++
			} else {
				log.Info().Str("remote_id", tx.RemoteID).Msg("[DRY RUN] Would create Notion page")
				stats.Created++
			}
			continue
		}

		props := TransactionToNotionProperties(tx)
		if exists {
			if _, err := notion.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("remote_id", tx.RemoteID).Str("page_id", pageID).Msg("Failed to update Notion page")
				stats.Failed++
				continue
			}
			stats.Updated++
			continue
		}

		page, err := notion.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().Err(err).Str("remote_id", tx.RemoteID).Msg("Failed to create Notion page")
			stats.Failed++
			continue
		}
		log.Debug().Str("remote_id", tx.RemoteID).Str("page_id", string(page.ID)).Msg("Created Notion page")
		stats.Created++
	}

	if opts.Prune {
		for remoteID, pageID := range pageByRemoteID {
			if local[remoteID] {
				continue
			}
			if opts.DryRun {
				log.Info().Str("remote_id", remoteID).Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
				stats.Archived++
				continue
			}
			if err := notion.ArchivePage(ctx, pageID); err != nil {
				log.Warn().Err(err).Str("remote_id", remoteID).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
				stats.Failed++
				continue
			}
			stats.Archived++
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("archived", stats.Archived).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Notion mirror completed")

	return stats, nil
}

// queryAllNotionPages queries all pages from a Notion database, following pagination.
func queryAllNotionPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
