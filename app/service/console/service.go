package console

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"travelchat/app/service/queue"

	"github.com/samber/do"
)

const maxLineSize = 64 * 1024

// Service reads user input into the command queue and renders the views as text.
type Service struct {
	in       io.Reader
	out      io.Writer
	loc      *time.Location
	queueSvc *queue.Service

	mu sync.Mutex
}

func New(di *do.Injector) (*Service, error) {
	return NewService(os.Stdin, os.Stdout, time.Local, do.MustInvoke[*queue.Service](di)), nil
}

func NewService(in io.Reader, out io.Writer, loc *time.Location, queueSvc *queue.Service) *Service {
	if loc == nil {
		loc = time.UTC
	}

	return &Service{
		in:       in,
		out:      out,
		loc:      loc,
		queueSvc: queueSvc,
	}
}

// Run forwards input lines until /quit, end of input or ctx cancellation.
// A quit command is always queued on the way out so the engine stops too.
func (s *Service) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	defer s.queueSvc.Add(queue.Command{Kind: queue.KindQuit})

	s.ShowHelp()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if err != nil {
				slog.Error("Failed to read input", "error", err)
			}
			return err

		case line := <-lines:
			cmd, err := Parse(strings.TrimRight(line, "\r"))
			if err != nil {
				s.Notice(err.Error())
				continue
			}
			if cmd.Kind == queue.KindQuit {
				return nil
			}

			if !s.queueSvc.Add(cmd) {
				s.Notice("Busy, please repeat")
			}
		}
	}
}
