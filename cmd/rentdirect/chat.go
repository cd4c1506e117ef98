package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"rentdirect/internal/hooks"
	"rentdirect/pkg/types"
)

var errNotConnected = errors.New("realtime connection not established")

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Join a conversation: print live events and send stdin lines",
		ArgsUsage: "CONVERSATION_ID",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "history", Value: 20, Usage: "Messages of history to show first"},
			&cli.DurationFlag{Name: "connect-timeout", Value: 10 * time.Second},
			&cli.DurationFlag{Name: "linger", Value: 500 * time.Millisecond, Usage: "Wait for echoes after stdin closes"},
		},
		Action: chatAction,
	}
}

func chatAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	conversationID := c.Args().First()
	if !types.IsValidConversationID(conversationID) {
		return types.ErrInvalidConversationID
	}
	state := rt.app.Session.Snapshot()
	if !state.IsAuthenticated {
		return errNotLoggedIn
	}
	me := state.User.ID

	p := &chatPrinter{out: rt.out, me: me}

	if n := c.Int("history"); n > 0 {
		history := hooks.NewQuery(func(ctx context.Context) (*types.Envelope[types.Page[types.Message]], error) {
			return rt.app.API.Chat.Messages(ctx, conversationID, 1, n)
		}, hooks.QueryOptions[types.Page[types.Message]]{Runtime: rt.hookRuntime()})
		if res := history.Execute(c.Context); res.OK() {
			for _, msg := range res.Data.Items {
				p.message(msg)
			}
		}
		history.Close()
	}

	rm := rt.app.Realtime
	unsubs := []func(){
		rm.OnNewMessage(func(msg types.Message) {
			if msg.ConversationID == conversationID {
				p.message(msg)
			}
		}),
		rm.OnTypingStart(func(e types.TypingEvent) {
			if e.ConversationID == conversationID && e.UserID != me {
				p.notice("%s is typing...", e.UserID)
			}
		}),
		rm.OnMessageRead(func(r types.ReadReceipt) {
			if r.ConversationID == conversationID && r.ReadBy != me {
				p.notice("read by %s", r.ReadBy)
			}
		}),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	if err := waitConnected(c.Context, rt, c.Duration("connect-timeout")); err != nil {
		return err
	}

	rm.JoinConversation(conversationID)
	defer rm.LeaveConversation(conversationID)
	rm.MarkAsRead(conversationID)

	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	lines := readLines(in)

	for {
		select {
		case <-c.Context.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				linger(c.Context, c.Duration("linger"))
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			rm.StartTyping(conversationID)
			rm.SendMessage(conversationID, line)
			rm.StopTyping(conversationID)
		}
	}
}

func waitConnected(ctx context.Context, rt *runtime, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !rt.app.Realtime.IsConnected() {
		select {
		case <-ctx.Done():
			return errNotConnected
		case <-ticker.C:
		}
	}
	return nil
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func linger(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// chatPrinter serializes output from the dispatch goroutine and the
// command goroutine.
type chatPrinter struct {
	mu  sync.Mutex
	out io.Writer
	me  string
}

func (p *chatPrinter) message(msg types.Message) {
	who := msg.SenderID
	if msg.Sender != nil && msg.Sender.FullName() != "" {
		who = msg.Sender.FullName()
	}
	if msg.SenderID == p.me {
		who = "you"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04"), who, msg.Content)
}

func (p *chatPrinter) notice(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "  * "+format+"\n", args...)
}
