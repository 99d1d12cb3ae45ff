package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"travelchat/app/client/recommender"
	"travelchat/app/config"
	"travelchat/app/model"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const searchLimit = 10

var (
	ErrLoading   = errors.New("history is already loading")
	ErrUnknownID = errors.New("recommendation is not in history")
	ErrDeleting  = errors.New("recommendation is already being deleted")
	ErrInactive  = errors.New("history is not active")
)

type Store interface {
	List(ctx context.Context, limit, offset int) ([]model.Recommendation, error)
	Remove(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*model.Recommendation, error)
	Search(ctx context.Context, query string, limit int) ([]model.Recommendation, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

// Service mirrors the persisted recommendations, in the order the service delivers them.
type Service struct {
	gateway  Store
	pageSize int

	mu        sync.RWMutex
	items     []model.Recommendation
	loading   bool
	active    bool
	exhausted bool
	offset    int
	fresh     []model.Recommendation
	deleting  map[int]struct{}
	deleted   map[int]struct{}
	onDeleted func(id int)
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(do.MustInvoke[*recommender.Client](di), cfg.History.PageSize), nil
}

func NewService(gateway Store, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 10
	}

	return &Service{
		gateway:  gateway,
		pageSize: pageSize,
		deleting: make(map[int]struct{}),
		deleted:  make(map[int]struct{}),
	}
}

// OnDeleted registers the deleted-id callback, invoked after a confirmed delete.
func (s *Service) OnDeleted(fn func(id int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onDeleted = fn
}

// Activate marks the view visible and replaces the list with the first page.
// On failure the previous list is kept, plus anything created while loading.
func (s *Service) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrLoading
	}
	s.loading = true
	s.active = true
	s.mu.Unlock()

	page, err := s.gateway.List(ctx, s.pageSize, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	fresh := s.fresh
	s.fresh = nil

	if err == nil {
		s.items = s.withoutDeleted(page)
		s.offset = len(page)
		s.exhausted = len(page) < s.pageSize
	}
	if s.active {
		for _, rec := range fresh {
			s.mergeLocked(rec)
		}
	}

	if err != nil {
		return fmt.Errorf("gateway.List: %w", err)
	}

	return nil
}

// Deactivate marks the view hidden. The list is kept until the next Activate.
func (s *Service) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
}

// LoadMore appends the next page, skipping entries already shown.
// It reports whether anything was added. The page offset counts rows the
// service has sent, not rows shown, so filtered entries never shift it.
func (s *Service) LoadMore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false, ErrInactive
	}
	if s.loading {
		s.mu.Unlock()
		return false, ErrLoading
	}
	if s.exhausted {
		s.mu.Unlock()
		return false, nil
	}
	s.loading = true
	offset := s.offset
	s.mu.Unlock()

	page, err := s.gateway.List(ctx, s.pageSize, offset)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	fresh := s.fresh
	s.fresh = nil
	if s.active {
		for _, rec := range fresh {
			s.mergeLocked(rec)
		}
	}

	if err != nil {
		return false, fmt.Errorf("gateway.List: %w", err)
	}

	s.exhausted = len(page) < s.pageSize
	s.offset += len(page)

	added := false
	for _, rec := range s.withoutDeleted(page) {
		if s.indexLocked(rec.ID) >= 0 {
			continue
		}
		s.items = append(s.items, rec)
		added = true
	}

	return added, nil
}

// DeleteOne removes a recommendation on the service and, once confirmed,
// from the local list. The deleted-id callback runs afterwards.
func (s *Service) DeleteOne(ctx context.Context, id int) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return ErrUnknownID
	}
	if _, busy := s.deleting[id]; busy {
		s.mu.Unlock()
		return ErrDeleting
	}
	s.deleting[id] = struct{}{}
	s.mu.Unlock()

	err := s.gateway.Remove(ctx, id)

	s.mu.Lock()
	delete(s.deleting, id)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("gateway.Remove: %w", err)
	}

	s.deleted[id] = struct{}{}
	if s.indexLocked(id) >= 0 && s.offset > 0 {
		s.offset--
	}
	s.items = pie.Filter(s.items, func(rec model.Recommendation) bool {
		return rec.ID != id
	})
	callback := s.onDeleted
	s.mu.Unlock()

	if callback != nil {
		callback(id)
	}

	return nil
}

// NotifyCreated receives the new-recommendation callback. A visible history
// merges the item at the head; a hidden one picks it up on the next Activate.
func (s *Service) NotifyCreated(rec model.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.active:
	case s.loading:
		s.fresh = append(s.fresh, rec)
	default:
		s.mergeLocked(rec)
	}
}

// Search queries the service without touching the list.
func (s *Service) Search(ctx context.Context, query string) ([]model.Recommendation, error) {
	found, err := s.gateway.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("gateway.Search: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.withoutDeleted(found), nil
}

func (s *Service) Lookup(ctx context.Context, id int) (*model.Recommendation, error) {
	s.mu.RLock()
	_, gone := s.deleted[id]
	s.mu.RUnlock()

	if gone {
		return nil, ErrUnknownID
	}

	rec, err := s.gateway.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("gateway.Get: %w", err)
	}

	return rec, nil
}

func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	stats, err := s.gateway.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway.Stats: %w", err)
	}

	return stats, nil
}

func (s *Service) Items() []model.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Recommendation(nil), s.items...)
}

func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

func (s *Service) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.active
}

func (s *Service) mergeLocked(rec model.Recommendation) {
	if _, gone := s.deleted[rec.ID]; gone {
		return
	}
	if s.indexLocked(rec.ID) >= 0 {
		return
	}

	s.items = append([]model.Recommendation{rec}, s.items...)
	s.offset++
}

func (s *Service) indexLocked(id int) int {
	return pie.FindFirstUsing(s.items, func(rec model.Recommendation) bool {
		return rec.ID == id
	})
}

func (s *Service) withoutDeleted(list []model.Recommendation) []model.Recommendation {
	return pie.Filter(list, func(rec model.Recommendation) bool {
		_, gone := s.deleted[rec.ID]
		return !gone
	})
}
