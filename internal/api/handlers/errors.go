// Package handlers implements the endpoints of the local ledger API.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dvloznov/ledger-sync/internal/api/middleware"
	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/ledger"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/reconcile"
	"github.com/dvloznov/ledger-sync/internal/remote"
	"github.com/dvloznov/ledger-sync/internal/store"
)

// StatusFor maps an operation error onto an HTTP status.
// Remote failures are reported as 502 since this API fronts the ledger server.
func StatusFor(err error) int {
	var (
		invalid   *domain.ValidationError
		transport *remote.TransportError
		rejected  *remote.RemoteRejectedError
		malformed *remote.MalformedPayloadError
	)

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, reconcile.ErrSyncInProgress), errors.Is(err, ledger.ErrNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &transport),
		errors.As(err, &rejected),
		errors.As(err, &malformed),
		errors.Is(err, remote.ErrEmptyResponse),
		errors.Is(err, reconcile.ErrMissingRemoteID):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeOpError logs err and writes its user-facing message.
func writeOpError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := StatusFor(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg(msg)
	} else {
		log.Warn().Err(err).Int("status", status).Msg(msg)
	}

	text := reconcile.Message(err)
	if errors.Is(err, ledger.ErrNotConfirmed) {
		text = "The transaction has not been confirmed by the ledger server yet."
	}
	middleware.WriteError(w, status, text)
}
