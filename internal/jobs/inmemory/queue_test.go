package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/ledger-sync/internal/jobs"
	"github.com/dvloznov/ledger-sync/internal/remote"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.SyncJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, want)
	return nil
}

func TestQueue_RunsJobsOneAtATime(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var running, maxRunning int32
	var mu sync.Mutex
	var order []int

	handler := func(ctx context.Context, job jobs.Job) error {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		order = append(order, job.(*jobs.SyncJob).Filter.Month)
		mu.Unlock()
		atomic.AddInt32(&running, -1)
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := q.Start(context.Background(), handler); err == nil {
		t.Error("second Start should fail")
	}

	var ids []string
	for month := 1; month <= 3; month++ {
		job := &jobs.SyncJob{Filter: &remote.Filter{Month: month, Year: 2025}}
		if err := q.PublishSync(context.Background(), job); err != nil {
			t.Fatalf("PublishSync failed: %v", err)
		}
		ids = append(ids, job.GetID())
	}

	for _, id := range ids {
		waitForStatus(t, store, id, jobs.JobStatusCompleted)
	}

	if atomic.LoadInt32(&maxRunning) != 1 {
		t.Errorf("max concurrent jobs = %d, want 1", maxRunning)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[2] != 3 {
		t.Errorf("jobs ran out of order: %v", order)
	}
}

func TestQueue_RecordsFailure(t *testing.T) {
	store := NewStore()
	q := NewQueue(1, store)
	defer q.Close()

	err := q.Start(context.Background(), func(ctx context.Context, job jobs.Job) error {
		return errors.New("remote down")
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.SyncJob{Trigger: jobs.TriggerAPI}
	if err := q.PublishSync(context.Background(), job); err != nil {
		t.Fatalf("PublishSync failed: %v", err)
	}
	id := job.GetID()

	got := waitForStatus(t, store, id, jobs.JobStatusFailed)
	if got.Error != "remote down" || got.CompletedAt == nil || got.RetryCount != 0 {
		t.Errorf("unexpected job state: %+v", got)
	}
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.PublishSync(context.Background(), &jobs.SyncJob{}); err == nil {
		t.Error("expected error publishing to a closed queue")
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, status := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted} {
		job := &jobs.SyncJob{
			JobID:     string(rune('a' + i)),
			Status:    status,
			Trigger:   jobs.TriggerSchedule,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveJob(context.Background(), job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	got, _ := store.ListJobs(context.Background(), jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if len(got) != 2 || got[0].JobID != "c" || got[1].JobID != "a" {
		t.Errorf("unexpected completed jobs: %v", got)
	}

	got, _ = store.ListJobs(context.Background(), jobs.JobFilter{Limit: 1, Offset: 1})
	if len(got) != 1 || got[0].JobID != "b" {
		t.Errorf("unexpected page: %v", got)
	}

	if err := store.UpdateJobStatus(context.Background(), "missing", jobs.JobStatusFailed, ""); err == nil {
		t.Error("expected error for unknown job")
	}
}
