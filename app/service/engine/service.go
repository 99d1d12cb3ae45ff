package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"travelchat/app/config"
	"travelchat/app/model"
	"travelchat/app/service/chat"
	"travelchat/app/service/console"
	"travelchat/app/service/history"
	"travelchat/app/service/queue"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

type Screen int

const (
	ScreenChat Screen = iota
	ScreenHistory
)

// View renders controller state. Calls may come from several goroutines.
type View interface {
	ShowChat(items []model.Recommendation, draft string, places int, pending bool)
	ShowHistory(items []model.Recommendation, loading bool)
	ShowOne(rec model.Recommendation)
	ShowFound(query string, items []model.Recommendation)
	ShowStats(stats model.Stats)
	ShowHelp()
	Notice(msg string)
}

var _ View = (*console.Service)(nil)

type Service struct {
	chatSvc     *chat.Service
	historySvc  *history.Service
	queueSvc    *queue.Service
	view        View
	maxInFlight int

	mu     sync.Mutex
	screen Screen
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		do.MustInvoke[*chat.Service](di),
		do.MustInvoke[*history.Service](di),
		do.MustInvoke[*queue.Service](di),
		do.MustInvoke[*console.Service](di),
		cfg.Engine.MaxInFlight,
	), nil
}

func NewService(chatSvc *chat.Service, historySvc *history.Service, queueSvc *queue.Service, view View, maxInFlight int) *Service {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}

	return &Service{
		chatSvc:     chatSvc,
		historySvc:  historySvc,
		queueSvc:    queueSvc,
		view:        view,
		maxInFlight: maxInFlight,
	}
}

// Run dispatches queued commands until quit, queue shutdown or ctx cancellation.
// Local commands are applied inline; remote ones run in the background and
// Run waits for them before returning.
func (s *Service) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(s.maxInFlight)

	// started calls are never aborted, only bounded by the http client timeout
	callCtx := context.WithoutCancel(ctx)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case cmd, ok := <-s.queueSvc.Channel():
			if !ok || cmd.Kind == queue.KindQuit {
				break loop
			}

			s.dispatch(callCtx, &g, cmd)
		}
	}

	return g.Wait()
}

func (s *Service) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.screen
}

func (s *Service) dispatch(ctx context.Context, g *errgroup.Group, cmd queue.Command) {
	switch cmd.Kind {
	case queue.KindType:
		s.focus(ScreenChat)
		commit, err := s.chatSvc.Type(cmd.Text)
		if err != nil {
			s.guard(cmd, err)
			return
		}
		if commit {
			s.submit(ctx, g, cmd)
		}

	case queue.KindChat:
		s.focus(ScreenChat)
		s.render()

	case queue.KindHistory:
		s.focus(ScreenHistory)
		s.async(ctx, g, cmd, s.historySvc.Activate)

	case queue.KindMore:
		s.async(ctx, g, cmd, func(ctx context.Context) error {
			added, err := s.historySvc.LoadMore(ctx)
			if err == nil && !added {
				s.view.Notice("No more recommendations")
			}
			return err
		})

	case queue.KindPlaces:
		if err := s.chatSvc.SetPlaces(cmd.N); err != nil {
			s.guard(cmd, err)
			return
		}
		s.view.Notice(fmt.Sprintf("Places per request: %d", cmd.N))

	case queue.KindClear:
		s.chatSvc.ClearAll()
		s.render()

	case queue.KindDelete:
		s.async(ctx, g, cmd, func(ctx context.Context) error {
			return s.historySvc.DeleteOne(ctx, cmd.N)
		})

	case queue.KindShow:
		s.async(ctx, g, cmd, func(ctx context.Context) error {
			rec, err := s.historySvc.Lookup(ctx, cmd.N)
			if err != nil {
				return err
			}
			s.view.ShowOne(*rec)
			return nil
		})

	case queue.KindSearch:
		s.async(ctx, g, cmd, func(ctx context.Context) error {
			found, err := s.historySvc.Search(ctx, cmd.Text)
			if err != nil {
				return err
			}
			s.view.ShowFound(cmd.Text, found)
			return nil
		})

	case queue.KindStats:
		s.async(ctx, g, cmd, func(ctx context.Context) error {
			stats, err := s.historySvc.Stats(ctx)
			if err != nil {
				return err
			}
			s.view.ShowStats(*stats)
			return nil
		})

	case queue.KindHelp:
		s.view.ShowHelp()

	default:
		slog.Warn("Unknown command", "command", cmd.Kind.String())
	}
}

// submit reserves the draft on the dispatcher so the next typed line is
// rejected instead of joining a draft that is already being sent.
func (s *Service) submit(ctx context.Context, g *errgroup.Group, cmd queue.Command) {
	send, err := s.chatSvc.Prepare()
	if errors.Is(err, chat.ErrEmptyDraft) {
		return
	}
	if err != nil {
		s.guard(cmd, err)
		return
	}

	s.async(ctx, g, cmd, func(ctx context.Context) error {
		_, err := send(ctx)
		return err
	})
}

// async runs fn on the errgroup. Failures never stop the group and the current
// screen is redrawn either way.
func (s *Service) async(ctx context.Context, g *errgroup.Group, cmd queue.Command, fn func(ctx context.Context) error) {
	g.Go(func() error {
		start := time.Now()

		if err := fn(ctx); err != nil {
			s.guard(cmd, err)
		} else {
			slog.Debug("Processed command",
				"action", cmd.Kind.String(),
				"duration", time.Since(start))
		}

		s.render()
		return nil
	})
}

// guard reports a rejected or failed action. Precondition errors are expected
// and only shown; anything else is a remote failure and is logged too.
func (s *Service) guard(cmd queue.Command, err error) {
	switch {
	case errors.Is(err, chat.ErrPending):
		s.view.Notice("A request is already in progress")
	case errors.Is(err, chat.ErrPlaceCount):
		s.view.Notice(fmt.Sprintf("Places must be between %d and %d", model.MinPlaces, model.MaxPlaces))
	case errors.Is(err, history.ErrLoading):
		s.view.Notice("History is still loading")
	case errors.Is(err, history.ErrDeleting):
		s.view.Notice(fmt.Sprintf("Recommendation %d is already being deleted", cmd.N))
	case errors.Is(err, history.ErrUnknownID):
		s.view.Notice(fmt.Sprintf("Recommendation %d is not in history", cmd.N))
	case errors.Is(err, history.ErrInactive):
		s.view.Notice("Open /history first")
	default:
		action := cmd.Kind.String()
		if cmd.Kind == queue.KindType {
			action = "request"
		}
		slog.Warn("Action failed", "action", action, "error", err)
		s.view.Notice(fmt.Sprintf("%s failed, try again", action))
	}
}

func (s *Service) focus(screen Screen) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screen == ScreenHistory && screen != ScreenHistory {
		s.historySvc.Deactivate()
	}
	s.screen = screen
}

func (s *Service) render() {
	switch s.Screen() {
	case ScreenHistory:
		s.view.ShowHistory(s.historySvc.Items(), s.historySvc.Loading())
	default:
		draft, places := s.chatSvc.Draft()
		s.view.ShowChat(s.chatSvc.Items(), draft, places, s.chatSvc.Pending())
	}
}
