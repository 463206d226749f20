// Package api wires the local ledger API: routes plus middleware.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/ledger-sync/internal/api/handlers"
	"github.com/dvloznov/ledger-sync/internal/api/middleware"
	"github.com/dvloznov/ledger-sync/internal/jobs"
	"github.com/rs/zerolog"
)

// Deps are the services behind the routes. Jobs and Publisher are optional;
// the job routes and async sync are only served when they are set.
type Deps struct {
	Ledger         handlers.LedgerService
	Syncer         jobs.Syncer
	Categories     handlers.CategoryService
	PaymentMethods handlers.PaymentMethodService
	Jobs           jobs.JobStore
	Publisher      jobs.Publisher
	AuthToken      string
	Log            zerolog.Logger
}

// NewRouter builds the API handler with the full middleware chain.
func NewRouter(d Deps) http.Handler {
	transactions := handlers.NewTransactionsHandler(d.Ledger)
	sync := handlers.NewSyncHandler(d.Syncer, d.Publisher)
	cat := handlers.NewCatalogHandler(d.Categories, d.PaymentMethods)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/transactions", transactions.ListTransactions)
	mux.HandleFunc("POST /api/transactions", transactions.CreateTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", transactions.UpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactions.DeleteTransaction)
	mux.HandleFunc("GET /api/transactions/{id}/items", transactions.ListItems)

	mux.HandleFunc("POST /api/sync", sync.Sync)

	mux.HandleFunc("GET /api/categories", cat.ListCategories)
	mux.HandleFunc("POST /api/categories", cat.CreateCategory)
	mux.HandleFunc("GET /api/payment-methods", cat.ListPaymentMethods)

	if d.Jobs != nil {
		jobsHandler := handlers.NewJobsHandler(d.Jobs)
		mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(d.Log)(
		middleware.RequestID(
			middleware.Logger(d.Log)(
				middleware.CORS(
					middleware.Auth(d.AuthToken)(mux),
				),
			),
		),
	)
}
