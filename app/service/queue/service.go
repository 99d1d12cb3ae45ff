package queue

import (
	"log/slog"
	"sync"

	"github.com/samber/do"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

type Kind int

const (
	KindType Kind = iota
	KindChat
	KindHistory
	KindMore
	KindPlaces
	KindClear
	KindDelete
	KindShow
	KindSearch
	KindStats
	KindHelp
	KindQuit
)

var kindNames = map[Kind]string{
	KindType:    "type",
	KindChat:    "chat",
	KindHistory: "history",
	KindMore:    "more",
	KindPlaces:  "places",
	KindClear:   "clear",
	KindDelete:  "delete",
	KindShow:    "show",
	KindSearch:  "search",
	KindStats:   "stats",
	KindHelp:    "help",
	KindQuit:    "quit",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is one user action. Text carries typed input or a search query,
// N carries an id or a place count.
type Command struct {
	Kind Kind
	Text string
	N    int
}

type Service struct {
	mu     sync.Mutex
	closed bool
	queue  chan Command
}

func New(_ *do.Injector) (*Service, error) {
	return NewService(bufferSize), nil
}

func NewService(size int) *Service {
	return &Service{
		queue: make(chan Command, size),
	}
}

// Add enqueues a command without blocking. It reports false when the command was dropped.
func (s *Service) Add(cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.queue <- cmd:
		return true
	default:
		slog.Warn("command queue is full", "command", cmd.Kind.String())
		return false
	}
}

func (s *Service) Channel() <-chan Command {
	return s.queue
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.queue)
	}

	return nil
}
