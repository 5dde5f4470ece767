package queue

import (
	"context"
	"sync"

	"queuebot/internal/model"
)

type fakeLister struct {
	mu     sync.Mutex
	calls  []model.ListParams
	page   *model.QueuePage
	err    error
	onCall func(model.ListParams)
}

func (f *fakeLister) ListQueues(ctx context.Context, params model.ListParams) (*model.QueuePage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	page, err, onCall := f.page, f.err, f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall(params)
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (f *fakeLister) set(page *model.QueuePage, err error) {
	f.mu.Lock()
	f.page, f.err = page, err
	f.mu.Unlock()
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLister) last() model.ListParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeActioner struct {
	mu       sync.Mutex
	requests []model.ActionRequest
	resp     *model.TransactionQueue
	err      error
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeActioner) PerformAction(ctx context.Context, req model.ActionRequest) (*model.TransactionQueue, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	resp, err, block, started := f.resp, f.err, f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	out := *resp
	return &out, nil
}

func (f *fakeActioner) sent() []model.ActionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ActionRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []model.ActionAudit
}

func (f *fakeAudit) Record(ctx context.Context, entry *model.ActionAudit) error {
	f.mu.Lock()
	f.entries = append(f.entries, *entry)
	f.mu.Unlock()
	return nil
}

func (f *fakeAudit) all() []model.ActionAudit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ActionAudit, len(f.entries))
	copy(out, f.entries)
	return out
}

func strPtr(s string) *string { return &s }

func record(id int64, t model.QueueType, status model.QueueStatus) model.TransactionQueue {
	return model.TransactionQueue{ID: id, Type: t, Status: status, Amount: "10.00"}
}

func pageOf(count int, next, prev *string, recs ...model.TransactionQueue) *model.QueuePage {
	return &model.QueuePage{Count: count, Next: next, Previous: prev, Results: recs}
}
