package history

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"travelchat/app/client/recommender"
	"travelchat/app/model"
)

// storeStub serves pages out of a newest-first slice.
type storeStub struct {
	mu        sync.Mutex
	records   []model.Recommendation
	listErr   error
	removeErr error
	listCalls int
	removed   []int
	listGate  chan struct{}
}

func (s *storeStub) List(ctx context.Context, limit, offset int) ([]model.Recommendation, error) {
	s.mu.Lock()
	s.listCalls++
	gate := s.listGate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}
	if offset >= len(s.records) {
		return []model.Recommendation{}, nil
	}
	end := min(offset+limit, len(s.records))
	return append([]model.Recommendation(nil), s.records[offset:end]...), nil
}

func (s *storeStub) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, id)
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	return nil
}

func (s *storeStub) Get(ctx context.Context, id int) (*model.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID == id {
			found := rec
			return &found, nil
		}
	}
	return nil, recommender.ErrNotFound
}

func (s *storeStub) Search(ctx context.Context, query string, limit int) ([]model.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.Recommendation(nil), s.records...), nil
}

func (s *storeStub) Stats(ctx context.Context) (*model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &model.Stats{TotalRequests: len(s.records)}, nil
}

func (s *storeStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func rec(id int) model.Recommendation {
	return model.Recommendation{
		ID:           id,
		Text:         "запит",
		Exclude:      []string{},
		NumPlaces:    2,
		ResponseJSON: []model.Place{{Name: "A"}, {Name: "B"}},
		CreatedAt:    "2025-03-14T09:26:53Z",
	}
}

func ids(list []model.Recommendation) []int {
	out := make([]int, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func sameIDs(list []model.Recommendation, want ...int) bool {
	got := ids(list)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestActivate_ReplacesItems(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(3), rec(2), rec(1)}}
	svc := NewService(store, 10)

	if err := svc.Activate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := svc.Items()
	if !sameIDs(first, 3, 2, 1) {
		t.Fatalf("unexpected items: %v", ids(first))
	}
	if svc.Loading() {
		t.Fatalf("loading must be reset")
	}

	if err := svc.Activate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sameIDs(svc.Items(), ids(first)...) {
		t.Fatalf("repeated activate must yield the same items, got %v", ids(svc.Items()))
	}

	store.mu.Lock()
	store.records = []model.Recommendation{rec(5)}
	store.mu.Unlock()
	if err := svc.Activate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sameIDs(svc.Items(), 5) {
		t.Fatalf("activate must replace wholesale, got %v", ids(svc.Items()))
	}
}

func TestActivate_FailureKeepsItems(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(2), rec(1)}}
	svc := NewService(store, 10)
	if err := svc.Activate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.listErr = recommender.ErrNetwork
	err := svc.Activate(context.Background())
	if !errors.Is(err, recommender.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !sameIDs(svc.Items(), 2, 1) {
		t.Fatalf("items must survive a failed reload, got %v", ids(svc.Items()))
	}
	if svc.Loading() {
		t.Fatalf("loading must be reset after failure")
	}
}

func TestActivate_FirstFailureLeavesEmpty(t *testing.T) {
	svc := NewService(&storeStub{listErr: recommender.ErrRequestFailed}, 10)
	if err := svc.Activate(context.Background()); !errors.Is(err, recommender.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if len(svc.Items()) != 0 {
		t.Fatalf("expected empty list")
	}
}

func TestActivate_RejectsWhileLoading(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(1)}, listGate: make(chan struct{})}
	svc := NewService(store, 10)

	done := make(chan error, 1)
	go func() { done <- svc.Activate(context.Background()) }()

	for store.calls() == 0 {
		runtime.Gosched()
	}
	if err := svc.Activate(context.Background()); !errors.Is(err, ErrLoading) {
		t.Fatalf("expected ErrLoading, got %v", err)
	}

	close(store.listGate)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls() != 1 {
		t.Fatalf("expected one list call, got %d", store.calls())
	}
}

func TestDeleteOne(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(3), rec(2), rec(1)}}
	svc := NewService(store, 10)
	svc.Activate(context.Background())

	var notified []int
	svc.OnDeleted(func(id int) { notified = append(notified, id) })

	if err := svc.DeleteOne(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sameIDs(svc.Items(), 3, 1) {
		t.Fatalf("unexpected items: %v", ids(svc.Items()))
	}
	if len(notified) != 1 || notified[0] != 2 {
		t.Fatalf("expected callback with 2, got %v", notified)
	}
}

func TestDeleteOne_Failure(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(1)}}
	svc := NewService(store, 10)
	svc.Activate(context.Background())

	called := false
	svc.OnDeleted(func(int) { called = true })
	store.removeErr = recommender.ErrRequestFailed

	if err := svc.DeleteOne(context.Background(), 1); !errors.Is(err, recommender.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if !sameIDs(svc.Items(), 1) {
		t.Fatalf("item must stay after failed delete")
	}
	if called {
		t.Fatalf("callback must not run on failure")
	}

	store.removeErr = nil
	if err := svc.DeleteOne(context.Background(), 1); err != nil {
		t.Fatalf("delete must be possible again after a failure: %v", err)
	}
}

func TestDeleteOne_UnknownID(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(1)}}
	svc := NewService(store, 10)
	svc.Activate(context.Background())

	if err := svc.DeleteOne(context.Background(), 99); !errors.Is(err, ErrUnknownID) {
		t.Fatalf("expected ErrUnknownID, got %v", err)
	}
	if len(store.removed) != 0 {
		t.Fatalf("service must not be called for unknown ids")
	}
}

func TestDeletedIDNeverReturns(t *testing.T) {
	stale := []model.Recommendation{rec(2), rec(1)}
	store := &storeStub{records: append([]model.Recommendation(nil), stale...)}
	svc := NewService(store, 10)
	svc.Activate(context.Background())

	if err := svc.DeleteOne(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a reload that raced the delete still carries the old row
	store.mu.Lock()
	store.records = stale
	store.mu.Unlock()

	if err := svc.Activate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sameIDs(svc.Items(), 1) {
		t.Fatalf("deleted id reappeared: %v", ids(svc.Items()))
	}

	svc.NotifyCreated(rec(2))
	if !sameIDs(svc.Items(), 1) {
		t.Fatalf("deleted id reappeared through callback: %v", ids(svc.Items()))
	}
}

func TestNotifyCreated(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(1)}}
	svc := NewService(store, 10)

	svc.NotifyCreated(rec(2))
	if len(svc.Items()) != 0 {
		t.Fatalf("inactive history must not merge")
	}

	store.mu.Lock()
	store.records = []model.Recommendation{rec(2), rec(1)}
	store.mu.Unlock()
	svc.Activate(context.Background())

	svc.NotifyCreated(rec(3))
	svc.NotifyCreated(rec(3))
	if !sameIDs(svc.Items(), 3, 2, 1) {
		t.Fatalf("active history must merge at head once, got %v", ids(svc.Items()))
	}

	svc.Deactivate()
	svc.NotifyCreated(rec(4))
	if !sameIDs(svc.Items(), 3, 2, 1) {
		t.Fatalf("hidden history must not merge, got %v", ids(svc.Items()))
	}
}

func TestNotifyCreated_WhileLoading(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(1)}, listGate: make(chan struct{})}
	svc := NewService(store, 10)

	done := make(chan error, 1)
	go func() { done <- svc.Activate(context.Background()) }()
	for store.calls() == 0 {
		runtime.Gosched()
	}

	svc.NotifyCreated(rec(2))
	close(store.listGate)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sameIDs(svc.Items(), 2, 1) {
		t.Fatalf("item created during load must be merged, got %v", ids(svc.Items()))
	}
}

func TestNotifyCreated_WhileFailedReload(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(1)}}
	svc := NewService(store, 10)
	svc.Activate(context.Background())

	store.mu.Lock()
	store.listErr = recommender.ErrNetwork
	store.listGate = make(chan struct{})
	store.mu.Unlock()

	calls := store.calls()
	done := make(chan error, 1)
	go func() { done <- svc.Activate(context.Background()) }()
	for store.calls() == calls {
		runtime.Gosched()
	}

	svc.NotifyCreated(rec(2))
	close(store.listGate)
	if err := <-done; !errors.Is(err, recommender.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}

	if !svc.Active() || !sameIDs(svc.Items(), 2, 1) {
		t.Fatalf("failed reload must still merge new items, got active=%v items=%v", svc.Active(), ids(svc.Items()))
	}
}

func TestLoadMore_OffsetFollowsServerRows(t *testing.T) {
	all := []model.Recommendation{rec(5), rec(4), rec(3), rec(2), rec(1)}
	store := &storeStub{records: append([]model.Recommendation(nil), all...)}
	svc := NewService(store, 2)
	svc.Activate(context.Background())

	if err := svc.DeleteOne(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the next listing still carries the deleted row
	store.mu.Lock()
	store.records = append([]model.Recommendation(nil), all...)
	store.mu.Unlock()
	svc.Activate(context.Background())
	if !sameIDs(svc.Items(), 5) {
		t.Fatalf("unexpected first page: %v", ids(svc.Items()))
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.LoadMore(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !sameIDs(svc.Items(), 5, 3, 2, 1) {
		t.Fatalf("filtered rows must not shift later pages, got %v", ids(svc.Items()))
	}

	store.mu.Lock()
	store.records = append([]model.Recommendation{rec(6)}, store.records...)
	store.mu.Unlock()
	svc.NotifyCreated(rec(6))
	if !sameIDs(svc.Items(), 6, 5, 3, 2, 1) {
		t.Fatalf("unexpected items after merge: %v", ids(svc.Items()))
	}
}

func TestLoadMore(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(5), rec(4), rec(3), rec(2), rec(1)}}
	svc := NewService(store, 2)

	if _, err := svc.LoadMore(context.Background()); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}

	svc.Activate(context.Background())
	if !sameIDs(svc.Items(), 5, 4) {
		t.Fatalf("unexpected first page: %v", ids(svc.Items()))
	}

	added, err := svc.LoadMore(context.Background())
	if err != nil || !added {
		t.Fatalf("expected second page: %v %v", added, err)
	}
	added, err = svc.LoadMore(context.Background())
	if err != nil || !added {
		t.Fatalf("expected third page: %v %v", added, err)
	}
	if !sameIDs(svc.Items(), 5, 4, 3, 2, 1) {
		t.Fatalf("unexpected items: %v", ids(svc.Items()))
	}

	calls := store.calls()
	added, err = svc.LoadMore(context.Background())
	if err != nil || added {
		t.Fatalf("exhausted history must not add: %v %v", added, err)
	}
	if store.calls() != calls {
		t.Fatalf("exhausted history must not call the service")
	}
}

func TestSearchAndLookupSkipDeleted(t *testing.T) {
	store := &storeStub{records: []model.Recommendation{rec(2), rec(1)}}
	svc := NewService(store, 10)
	svc.Activate(context.Background())
	svc.DeleteOne(context.Background(), 2)

	store.mu.Lock()
	store.records = []model.Recommendation{rec(2), rec(1)}
	store.mu.Unlock()

	found, err := svc.Search(context.Background(), "запит")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sameIDs(found, 1) {
		t.Fatalf("unexpected search result: %v", ids(found))
	}
	if !sameIDs(svc.Items(), 1) {
		t.Fatalf("search must not touch items")
	}

	if _, err := svc.Lookup(context.Background(), 2); !errors.Is(err, ErrUnknownID) {
		t.Fatalf("expected ErrUnknownID, got %v", err)
	}
	if got, err := svc.Lookup(context.Background(), 1); err != nil || got.ID != 1 {
		t.Fatalf("unexpected lookup: %v %+v", err, got)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil || stats.TotalRequests != 2 {
		t.Fatalf("unexpected stats: %v %+v", err, stats)
	}
}
