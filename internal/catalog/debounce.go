package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
)

// DefaultSearchDelay is how long a category search waits for more keystrokes.
const DefaultSearchDelay = 300 * time.Millisecond

// Debouncer runs the most recently triggered task after a delay. Triggering
// again, or calling Cancel, cancels the pending task, including one whose
// delay already elapsed: its context is cancelled mid-flight.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDebouncer creates a Debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger cancels any pending task and schedules fn to run after the delay.
// fn receives a context that is cancelled when a newer task is triggered.
func (d *Debouncer) Trigger(ctx context.Context, fn func(ctx context.Context)) {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	taskCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		timer := time.NewTimer(d.delay)
		defer timer.Stop()

		select {
		case <-taskCtx.Done():
			return
		case <-timer.C:
		}
		fn(taskCtx)
	}()
}

// Cancel cancels the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Wait blocks until every triggered task has finished or been dropped.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}

// SearchResult is one delivered category search.
type SearchResult struct {
	Query      string
	Categories []domain.Category
	Err        error
}

// DebouncedSearch runs category searches as the user types, delivering only
// the result of the latest query.
type DebouncedSearch struct {
	categories *Categories
	debouncer  *Debouncer
	deliver    func(SearchResult)
}

// NewDebouncedSearch creates a DebouncedSearch that calls deliver with each result.
func NewDebouncedSearch(categories *Categories, delay time.Duration, deliver func(SearchResult)) *DebouncedSearch {
	return &DebouncedSearch{
		categories: categories,
		debouncer:  NewDebouncer(delay),
		deliver:    deliver,
	}
}

// Type records a keystroke. Results of superseded queries are dropped.
func (s *DebouncedSearch) Type(ctx context.Context, query string) {
	s.debouncer.Trigger(ctx, func(ctx context.Context) {
		cats, err := s.categories.Search(ctx, query)
		if ctx.Err() != nil {
			log := logger.FromContext(ctx)
			log.Debug().Str("query", query).Msg("Dropped superseded category search")
			return
		}
		s.deliver(SearchResult{Query: query, Categories: cats, Err: err})
	})
}

// Stop cancels any pending search.
func (s *DebouncedSearch) Stop() {
	s.debouncer.Cancel()
}

// Wait blocks until pending searches have finished.
func (s *DebouncedSearch) Wait() {
	s.debouncer.Wait()
}
