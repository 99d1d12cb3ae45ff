package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"travelchat/app/service/queue"
)

const commandPrefix = "/"

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad argument")
)

var plainCommands = map[string]queue.Kind{
	"chat":    queue.KindChat,
	"history": queue.KindHistory,
	"more":    queue.KindMore,
	"clear":   queue.KindClear,
	"stats":   queue.KindStats,
	"help":    queue.KindHelp,
	"quit":    queue.KindQuit,
	"exit":    queue.KindQuit,
}

var numberCommands = map[string]queue.Kind{
	"places": queue.KindPlaces,
	"delete": queue.KindDelete,
	"show":   queue.KindShow,
}

// Parse turns one input line into a command. Lines not starting with a slash
// are draft text and are passed through untouched.
func Parse(line string) (queue.Command, error) {
	if !strings.HasPrefix(line, commandPrefix) {
		return queue.Command{Kind: queue.KindType, Text: line}, nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, commandPrefix), " ")
	name = strings.ToLower(strings.TrimSpace(name))
	arg = strings.TrimSpace(arg)

	if kind, ok := plainCommands[name]; ok {
		return queue.Command{Kind: kind}, nil
	}

	if kind, ok := numberCommands[name]; ok {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return queue.Command{}, fmt.Errorf("%w: /%s expects a positive number, got %q", ErrBadArgument, name, arg)
		}
		return queue.Command{Kind: kind, N: n}, nil
	}

	if name == "search" {
		if arg == "" {
			return queue.Command{}, fmt.Errorf("%w: /search expects text", ErrBadArgument)
		}
		return queue.Command{Kind: queue.KindSearch, Text: arg}, nil
	}

	return queue.Command{}, fmt.Errorf("%w: /%s", ErrUnknownCommand, name)
}
