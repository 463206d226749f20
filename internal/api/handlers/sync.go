package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/ledger-sync/internal/api/middleware"
	"github.com/dvloznov/ledger-sync/internal/jobs"
	"github.com/dvloznov/ledger-sync/internal/remote"
)

// SyncHandler starts syncs, either inline or through the job queue.
type SyncHandler struct {
	syncer    jobs.Syncer
	publisher jobs.Publisher
}

// NewSyncHandler creates a sync handler. publisher may be nil, which
// disables async=true.
func NewSyncHandler(syncer jobs.Syncer, publisher jobs.Publisher) *SyncHandler {
	return &SyncHandler{syncer: syncer, publisher: publisher}
}

// Sync handles POST /api/sync?month=&year=&category_id=&payment_method_id=&async=
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := remote.FilterFromQuery(query)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if async, _ := strconv.ParseBool(query.Get("async")); async {
		h.enqueue(w, r, filter)
		return
	}

	result, err := h.syncer.Sync(r.Context(), filter)
	if err != nil {
		writeOpError(w, r, "Sync failed", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *SyncHandler) enqueue(w http.ResponseWriter, r *http.Request, filter *remote.Filter) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Background sync is not enabled")
		return
	}

	job := &jobs.SyncJob{Filter: filter, Trigger: jobs.TriggerAPI}
	if err := h.publisher.PublishSync(r.Context(), job); err != nil {
		writeOpError(w, r, "Failed to enqueue sync job", err)
		return
	}

	// The worker owns job after publishing; only the ID is read back.
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(jobs.JobStatusPending),
	})
}
