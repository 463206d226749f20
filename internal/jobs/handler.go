package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/reconcile"
	"github.com/dvloznov/ledger-sync/internal/remote"
)

// Syncer runs one sync. *reconcile.Engine implements it.
type Syncer interface {
	Sync(ctx context.Context, filter *remote.Filter) (*reconcile.Result, error)
}

// AfterSync is called after a successful sync, for exports and mirrors.
// Its errors are logged and do not fail the job.
type AfterSync func(ctx context.Context, job *SyncJob) error

// NewSyncHandler returns a JobHandler that runs sync jobs through syncer.
func NewSyncHandler(syncer Syncer, after ...AfterSync) JobHandler {
	return func(ctx context.Context, job Job) error {
		syncJob, ok := job.(*SyncJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", syncJob.JobID).
			Str("trigger", string(syncJob.Trigger)).
			Logger()
		ctx = logger.WithContext(ctx, log)

		log.Info().Interface("filter", syncJob.Filter).Msg("Processing sync job")

		result, err := syncer.Sync(ctx, syncJob.Filter)
		if err != nil {
			log.Error().Err(err).Msg("Sync job failed")
			return errors.New(reconcile.Message(err))
		}
		syncJob.Result = result

		for _, fn := range after {
			if err := fn(ctx, syncJob); err != nil {
				log.Warn().Err(err).Msg("Post-sync step failed")
			}
		}

		log.Info().
			Int("inserted", result.Inserted).
			Int("updated", result.Updated).
			Int("deleted", result.Deleted).
			Msg("Sync job completed successfully")
		return nil
	}
}
