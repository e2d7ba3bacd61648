// Package interactive provides the interactive command-line interface of
// submux-cli.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/submux/submux-go/pkg/entry"
	"github.com/submux/submux-go/pkg/pubsub"
	"github.com/submux/submux-go/pkg/service"
	"github.com/submux/submux-go/pkg/wire"
)

type subscription struct {
	kind     pubsub.Kind
	listener pubsub.Listener
}

// Shell executes client commands against a pool.
type Shell struct {
	pool    *service.Pool
	codec   wire.Codec
	timeout time.Duration

	outMu sync.Mutex
	out   io.Writer

	mu   sync.Mutex
	subs map[pubsub.ChannelName]subscription
}

// NewShell creates a shell writing to out. Payloads are encoded and decoded
// with codec; timeout bounds every command.
func NewShell(pool *service.Pool, codec wire.Codec, timeout time.Duration, out io.Writer) *Shell {
	return &Shell{
		pool:    pool,
		codec:   codec,
		timeout: timeout,
		out:     out,
		subs:    make(map[pubsub.ChannelName]subscription),
	}
}

func (s *Shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// Run reads commands with readline until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "submux> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.outMu.Lock()
	s.out = rl.Stdout()
	s.outMu.Unlock()

	s.printHelp()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			s.printf("Exiting...\n")
			return nil
		}
		if s.Exec(ctx, line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "subscribe", "sub":
		s.cmdSubscribe(ctx, pubsub.Subscribe, args)
	case "ssubscribe", "ssub":
		s.cmdSubscribe(ctx, pubsub.SSubscribe, args)
	case "psubscribe", "psub":
		s.cmdSubscribe(ctx, pubsub.PSubscribe, args)
	case "unsubscribe", "unsub":
		s.cmdUnsubscribe(ctx, args)
	case "publish", "pub":
		s.cmdPublish(ctx, args)
	case "channels":
		s.cmdChannels()
	case "entries", "status":
		s.cmdEntries()
	case "quit", "exit", "q":
		s.printf("Exiting...\n")
		return true
	default:
		s.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	s.printf(`
submux Commands:
  Subscriptions:
    subscribe <channel>           - Subscribe to a channel
    ssubscribe <channel> <shard>  - Subscribe to a shard channel
    psubscribe <pattern>          - Subscribe to a glob pattern
    unsubscribe <channel>         - Drop a subscription
    channels                      - List subscriptions

  Publishing:
    publish <channel> <message>   - Publish a message

  General:
    entries                       - Show connection entries
    help                          - Show this help
    quit                          - Exit
`)
}

func (s *Shell) cmdSubscribe(ctx context.Context, kind pubsub.Kind, args []string) {
	var channel pubsub.ChannelName
	switch {
	case kind.IsShard() && len(args) == 2:
		channel = pubsub.ShardChannel(args[0], args[1])
	case !kind.IsShard() && len(args) == 1:
		channel = pubsub.Channel(args[0])
	case kind.IsShard():
		s.printf("Usage: %s <channel> <shard>\n", strings.ToLower(kind.String()))
		return
	default:
		s.printf("Usage: %s <channel>\n", strings.ToLower(kind.String()))
		return
	}

	s.mu.Lock()
	_, exists := s.subs[channel]
	s.mu.Unlock()
	if exists {
		s.printf("Already subscribed to %s\n", channel)
		return
	}

	handler := func(msg *pubsub.Message) {
		if msg.IsPattern() {
			s.printf("[%s via %s] %v\n", msg.Channel, msg.Pattern, msg.Payload)
			return
		}
		s.printf("[%s] %v\n", msg.Channel, msg.Payload)
	}
	var l pubsub.Listener
	if kind.IsPattern() {
		l = pubsub.NewPatternListener(channel, pubsub.NewHandlerID(), handler)
	} else {
		l = pubsub.NewMessageListener(channel, pubsub.NewHandlerID(), handler)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	e, err := s.pool.Subscribe(ctx, kind, s.codec, channel, l).Wait(ctx)
	if err != nil {
		s.printf("Subscribe failed: %v\n", err)
		return
	}

	s.mu.Lock()
	s.subs[channel] = subscription{kind: kind, listener: l}
	s.mu.Unlock()
	s.printf("Subscribed to %s on %s\n", channel, e.ID())
}

func (s *Shell) cmdUnsubscribe(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		s.printf("Usage: unsubscribe <channel> [shard]\n")
		return
	}
	channel := pubsub.Channel(args[0])
	if len(args) == 2 {
		channel = pubsub.ShardChannel(args[0], args[1])
	}

	s.mu.Lock()
	sub, ok := s.subs[channel]
	delete(s.subs, channel)
	s.mu.Unlock()
	if !ok {
		s.printf("Not subscribed to %s\n", channel)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.pool.RemoveListener(sub.kind, channel, sub.listener).Wait(ctx); err != nil {
		s.printf("Unsubscribe failed: %v\n", err)
		return
	}
	s.printf("Unsubscribed from %s\n", channel)
}

func (s *Shell) cmdPublish(ctx context.Context, args []string) {
	if len(args) < 2 {
		s.printf("Usage: publish <channel> <message>\n")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := strings.Join(args[1:], " ")
	if err := s.pool.Publish(ctx, pubsub.Channel(args[0]), s.codec, msg); err != nil {
		s.printf("Publish failed: %v\n", err)
		return
	}
	s.printf("Published to %s\n", args[0])
}

func (s *Shell) cmdChannels() {
	s.mu.Lock()
	lines := make([]string, 0, len(s.subs))
	for channel, sub := range s.subs {
		lines = append(lines, fmt.Sprintf("  %-12s %s", sub.kind, channel))
	}
	s.mu.Unlock()

	if len(lines) == 0 {
		s.printf("No subscriptions\n")
		return
	}
	sort.Strings(lines)
	s.printf("%s\n", strings.Join(lines, "\n"))
}

func (s *Shell) cmdEntries() {
	entries := s.pool.Entries()
	s.printf("Connections: %d, subscribes in flight: %d\n", len(entries), s.pool.InFlight())
	for _, e := range entries {
		s.printf("  %s\n", formatEntry(e))
	}
}

func formatEntry(e *entry.Entry) string {
	channels := e.Channels()
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.String()
	}
	sort.Strings(names)
	return fmt.Sprintf("%s free=%d/%d channels=[%s]", e.ID(), e.FreeSlots(), e.Capacity(), strings.Join(names, " "))
}
