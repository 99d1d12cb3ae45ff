package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"travelchat/app/client/recommender"
	"travelchat/app/config"
	"travelchat/app/model"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// continuation at the end of a typed line keeps the draft open instead of sending it.
const continuation = `\`

var (
	ErrEmptyDraft = errors.New("draft is empty")
	ErrPending    = errors.New("recommendation request already in flight")
	ErrPlaceCount = fmt.Errorf("place count must be between %d and %d", model.MinPlaces, model.MaxPlaces)
)

type Creator interface {
	Create(ctx context.Context, text string, numPlaces int) (*model.Recommendation, error)
}

// Service owns the recommendations created during the current session, newest first.
// Nothing here is persisted; ClearAll only resets the local list.
type Service struct {
	gateway Creator

	mu         sync.RWMutex
	items      []model.Recommendation
	draftText  string
	draftCount int
	pending    bool
	forgotten  map[int]struct{}
	onCreated  func(model.Recommendation)
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(do.MustInvoke[*recommender.Client](di), cfg.Chat.DefaultPlaces), nil
}

func NewService(gateway Creator, defaultPlaces int) *Service {
	if !model.ValidPlaceCount(defaultPlaces) {
		defaultPlaces = model.DefaultPlaces
	}

	return &Service{
		gateway:    gateway,
		draftCount: defaultPlaces,
		forgotten:  make(map[int]struct{}),
	}
}

// OnCreated registers the new-recommendation callback. It runs after the
// item is already at the head of the list.
func (s *Service) OnCreated(fn func(model.Recommendation)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onCreated = fn
}

func (s *Service) SetDraft(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		return ErrPending
	}

	s.draftText = text
	return nil
}

// Type appends one input line to the draft and reports whether it commits the
// draft. A line ending with a backslash continues the draft on the next line.
func (s *Service) Type(line string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		return false, ErrPending
	}

	commit := true
	if strings.HasSuffix(line, continuation) {
		line = strings.TrimSuffix(line, continuation)
		commit = false
	}

	if s.draftText == "" {
		s.draftText = line
	} else {
		s.draftText += "\n" + line
	}

	return commit, nil
}

func (s *Service) SetPlaces(n int) error {
	if !model.ValidPlaceCount(n) {
		return ErrPlaceCount
	}

	s.mu.Lock()
	s.draftCount = n
	s.mu.Unlock()

	return nil
}

// Submit sends the draft to the service. On success the new item goes to the head
// of the list and the draft is cleared; on failure list and draft stay untouched.
func (s *Service) Submit(ctx context.Context) (*model.Recommendation, error) {
	send, err := s.Prepare()
	if err != nil {
		return nil, err
	}

	return send(ctx)
}

// Prepare marks a request in flight and snapshots the draft it will send.
// Lines typed after Prepare are rejected with ErrPending until send returns.
// send must be called exactly once.
func (s *Service) Prepare() (send func(ctx context.Context) (*model.Recommendation, error), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending {
		return nil, ErrPending
	}
	if strings.TrimSpace(s.draftText) == "" {
		return nil, ErrEmptyDraft
	}

	text, count := s.draftText, s.draftCount
	s.pending = true

	return func(ctx context.Context) (*model.Recommendation, error) {
		return s.send(ctx, text, count)
	}, nil
}

func (s *Service) send(ctx context.Context, text string, count int) (*model.Recommendation, error) {
	rec, err := s.gateway.Create(ctx, text, count)

	s.mu.Lock()
	s.pending = false
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("gateway.Create: %w", err)
	}

	if _, gone := s.forgotten[rec.ID]; !gone {
		s.items = append([]model.Recommendation{*rec}, s.items...)
	}
	s.draftText = ""
	callback := s.onCreated
	s.mu.Unlock()

	if callback != nil {
		callback(*rec)
	}

	result := *rec
	return &result, nil
}

// ClearAll empties the local list. It never deletes anything on the service.
func (s *Service) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
}

// Forget drops a recommendation that was deleted elsewhere and keeps it from
// coming back in this session.
func (s *Service) Forget(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forgotten[id] = struct{}{}
	s.items = pie.Filter(s.items, func(rec model.Recommendation) bool {
		return rec.ID != id
	})
}

func (s *Service) Items() []model.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Recommendation(nil), s.items...)
}

func (s *Service) Draft() (string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.draftText, s.draftCount
}

func (s *Service) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pending
}
