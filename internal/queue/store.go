// Package queue holds the live transaction-queue view-model: the page store
// that the console renders and the dispatcher that sends operator actions.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"queuebot/internal/metrics"
	"queuebot/internal/model"
)

// Lister fetches one page of the queue listing.
type Lister interface {
	ListQueues(ctx context.Context, params model.ListParams) (*model.QueuePage, error)
}

// Query holds the ad hoc filters layered on top of the filter kind.
type Query struct {
	Search   string
	Status   model.QueueStatus
	DateFrom string
	DateTo   string
}

// IsZero reports whether no ad hoc filter is set.
func (q Query) IsZero() bool {
	return q == Query{}
}

// ChangeSource says where a state change came from.
type ChangeSource string

// Change sources.
const (
	SourceFetch  ChangeSource = "fetch"
	SourcePush   ChangeSource = "push"
	SourceAction ChangeSource = "action"
)

// Change is delivered to OnChange listeners after the store state moves.
// Record is set for single-record replacements and nil for page loads.
type Change struct {
	Source ChangeSource
	Record *model.TransactionQueue
}

// View is a point-in-time copy of the store state.
type View struct {
	Filter     model.FilterKind
	Query      Query
	Results    []model.TransactionQueue
	Pagination model.Pagination
	Err        string
	Loading    bool
	FetchedAt  time.Time
}

// StoreConfig holds the initial view of a store.
type StoreConfig struct {
	Filter   model.FilterKind
	Page     int
	PageSize int
	Query    Query
}

// DefaultStoreConfig returns the view a fresh console opens on.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{Filter: model.FilterProcessing, Page: 1, PageSize: 10}
}

// Store is the authoritative client-side copy of one page of the queue.
// It is safe for concurrent use; listeners are invoked without the lock held.
type Store struct {
	lister Lister

	mu        sync.Mutex
	results   []model.TransactionQueue
	page      *model.QueuePage
	filter    model.FilterKind
	query     Query
	pageNum   int
	pageSize  int
	err       string
	loading   bool
	fetchedAt time.Time

	lmu       sync.Mutex
	listeners map[int]func(Change)
	nextID    int
}

// NewStore creates a Store that loads pages through lister.
func NewStore(lister Lister, cfg StoreConfig) *Store {
	if !cfg.Filter.Valid() {
		cfg.Filter = model.FilterProcessing
	}
	if cfg.Page < 1 {
		cfg.Page = 1
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultStoreConfig().PageSize
	}
	return &Store{
		lister:    lister,
		filter:    cfg.Filter,
		query:     cfg.Query,
		pageNum:   cfg.Page,
		pageSize:  cfg.PageSize,
		listeners: make(map[int]func(Change)),
	}
}

// SetFilter switches the filter kind, resets to page 1 and refetches.
func (s *Store) SetFilter(ctx context.Context, kind model.FilterKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFilter, kind)
	}

	s.mu.Lock()
	s.filter = kind
	s.pageNum = 1
	s.mu.Unlock()

	return s.FetchQueues(ctx)
}

// SetQuery replaces the ad hoc filters, resets to page 1 and refetches.
func (s *Store) SetQuery(ctx context.Context, q Query) error {
	s.mu.Lock()
	s.query = q
	s.pageNum = 1
	s.mu.Unlock()

	return s.FetchQueues(ctx)
}

// SetPage moves to page n and refetches under the current filter.
// The page number is kept even if the fetch fails.
func (s *Store) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		return ErrInvalidPage
	}

	s.mu.Lock()
	s.pageNum = n
	s.mu.Unlock()

	return s.FetchQueues(ctx)
}

// FetchQueues loads the current page. On failure the previous results stay
// in place and the error is kept for display until the next success.
func (s *Store) FetchQueues(ctx context.Context) error {
	s.mu.Lock()
	params := model.ListParams{
		Filter:   s.filter,
		Page:     s.pageNum,
		PageSize: s.pageSize,
		Search:   s.query.Search,
		Status:   s.query.Status,
		DateFrom: s.query.DateFrom,
		DateTo:   s.query.DateTo,
	}
	s.loading = true
	s.mu.Unlock()

	start := time.Now()
	page, err := s.lister.ListQueues(ctx, params)
	metrics.StoreFetchLatency.WithLabelValues(string(params.Filter)).Observe(time.Since(start).Seconds())

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
		s.mu.Unlock()

		metrics.StoreFetchTotal.WithLabelValues(string(params.Filter), "error").Inc()
		log.Warn().
			Err(err).
			Str("filter", string(params.Filter)).
			Int("page", params.Page).
			Msg("Queue fetch failed, keeping previous results")
		s.notify(Change{Source: SourceFetch})
		return fmt.Errorf("failed to fetch queues: %w", err)
	}

	s.page = &model.QueuePage{Count: page.Count, Next: page.Next, Previous: page.Previous}
	s.results = make([]model.TransactionQueue, len(page.Results))
	copy(s.results, page.Results)
	s.err = ""
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	metrics.StoreFetchTotal.WithLabelValues(string(params.Filter), "ok").Inc()
	log.Debug().
		Str("filter", string(params.Filter)).
		Int("page", params.Page).
		Int("count", page.Count).
		Int("rows", len(page.Results)).
		Msg("Queue page loaded")
	s.notify(Change{Source: SourceFetch})
	return nil
}

// UpdateQueue replaces the visible record that has the same id as rec.
// Records not on the current page are dropped and false is returned.
func (s *Store) UpdateQueue(rec model.TransactionQueue) bool {
	return s.applyRecord(SourcePush, rec)
}

// applyRecord is the only path that replaces a single record.
func (s *Store) applyRecord(source ChangeSource, rec model.TransactionQueue) bool {
	s.mu.Lock()
	replaced := false
	for i := range s.results {
		if s.results[i].ID == rec.ID {
			s.results[i] = rec
			replaced = true
		}
	}
	s.mu.Unlock()

	if !replaced {
		metrics.StoreRecordUpdates.WithLabelValues(string(source), "dropped").Inc()
		log.Debug().
			Int64("queue_id", rec.ID).
			Str("source", string(source)).
			Msg("Queue update ignored, record not on current page")
		return false
	}

	metrics.StoreRecordUpdates.WithLabelValues(string(source), "applied").Inc()
	log.Debug().
		Int64("queue_id", rec.ID).
		Str("source", string(source)).
		Str("status", string(rec.Status)).
		Msg("Queue record replaced")

	r := rec
	s.notify(Change{Source: source, Record: &r})
	return true
}

// Get returns the visible record with the given id.
func (s *Store) Get(id int64) (model.TransactionQueue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.results {
		if r.ID == id {
			return r, true
		}
	}
	return model.TransactionQueue{}, false
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]model.TransactionQueue, len(s.results))
	copy(results, s.results)

	return View{
		Filter:     s.filter,
		Query:      s.query,
		Results:    results,
		Pagination: model.NewPagination(s.pageNum, s.pageSize, s.page),
		Err:        s.err,
		Loading:    s.loading,
		FetchedAt:  s.fetchedAt,
	}
}

// OnChange registers fn to be called after every state change.
// The returned func removes the listener.
func (s *Store) OnChange(fn func(Change)) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.lmu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
