package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/ledger-sync/internal/jobs"
	"github.com/dvloznov/ledger-sync/internal/logger"
)

// mockJobStore is a function-field mock of jobs.JobStore.
type mockJobStore struct {
	GetJobFunc   func(ctx context.Context, jobID string) (*jobs.SyncJob, error)
	ListJobsFunc func(ctx context.Context, filter jobs.JobFilter) ([]*jobs.SyncJob, error)
}

func (m *mockJobStore) SaveJob(ctx context.Context, job *jobs.SyncJob) error { return nil }

func (m *mockJobStore) GetJob(ctx context.Context, jobID string) (*jobs.SyncJob, error) {
	return m.GetJobFunc(ctx, jobID)
}

func (m *mockJobStore) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.SyncJob, error) {
	return m.ListJobsFunc(ctx, filter)
}

func TestJobsHandler_LogsStoreFailures(t *testing.T) {
	storeErr := errors.New("store offline")
	h := NewJobsHandler(&mockJobStore{
		GetJobFunc: func(ctx context.Context, jobID string) (*jobs.SyncJob, error) {
			return nil, storeErr
		},
		ListJobsFunc: func(ctx context.Context, filter jobs.JobFilter) ([]*jobs.SyncJob, error) {
			return nil, storeErr
		},
	})

	tests := []struct {
		name       string
		target     string
		serve      http.HandlerFunc
		wantStatus int
		wantLog    string
	}{
		{"get", "/api/jobs/abc", h.GetJob, http.StatusNotFound, "Failed to get job"},
		{"list", "/api/jobs?limit=5", h.ListJobs, http.StatusInternalServerError, "Failed to list jobs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))
			req := httptest.NewRequest(http.MethodGet, tt.target, nil).WithContext(ctx)
			req.SetPathValue("id", "abc")
			rec := httptest.NewRecorder()

			tt.serve(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(buf.String(), tt.wantLog) || !strings.Contains(buf.String(), "store offline") {
				t.Errorf("log output = %q", buf.String())
			}
		})
	}
}
