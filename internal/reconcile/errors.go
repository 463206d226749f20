package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/remote"
	"github.com/dvloznov/ledger-sync/internal/store"
)

var (
	// ErrSyncInProgress is returned when Sync is called while another sync runs.
	ErrSyncInProgress = errors.New("a sync is already in progress")

	// ErrMissingRemoteID is returned when a fetched record carries no usable id.
	ErrMissingRemoteID = errors.New("remote record has no id")
)

// Message renders err as a single sentence for the person who started the
// operation. It understands the gateway and store error types.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		transport *remote.TransportError
		rejected  *remote.RemoteRejectedError
		malformed *remote.MalformedPayloadError
		persist   *store.PersistenceError
		invalid   *domain.ValidationError
	)

	switch {
	case errors.As(err, &invalid):
		return fmt.Sprintf("Invalid %s: %s.", invalid.Field, invalid.Reason)
	case errors.Is(err, ErrSyncInProgress):
		return "A sync is already running. Wait for it to finish and try again."
	case errors.Is(err, context.Canceled):
		return "The operation was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The ledger server took too long to respond."
	case errors.As(err, &transport):
		return "Could not reach the ledger server. Check your connection and try again."
	case errors.As(err, &rejected):
		return fmt.Sprintf("The ledger server rejected the request (HTTP %d).", rejected.StatusCode)
	case errors.Is(err, remote.ErrEmptyResponse):
		return "The ledger server returned an empty response."
	case errors.As(err, &malformed):
		return "The ledger server returned data that could not be read."
	case errors.Is(err, ErrMissingRemoteID):
		return "The ledger server returned a transaction without an id. Nothing was changed."
	case errors.Is(err, store.ErrNotFound):
		return "The transaction no longer exists locally."
	case errors.As(err, &persist):
		return "Saving to the local store failed. Nothing was changed."
	default:
		return "Something went wrong: " + err.Error()
	}
}
