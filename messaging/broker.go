// Package messaging delivers action messages from the orchestrator to the
// per-page sessions ("tabs") and waits, for a bounded time, for their reply.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/jsonpick/models"
)

var (
	// ErrNoResponse means the handler did not reply within the timeout, or
	// finished without replying.
	ErrNoResponse = errors.New("messaging: no response")

	// ErrUnknownTab means no handler is registered under the tab id.
	ErrUnknownTab = errors.New("messaging: unknown tab")
)

// Handler receives the messages sent to one tab. A nil reply means the
// message expects none.
type Handler interface {
	HandleMessage(ctx context.Context, msg models.Message) (*models.Reply, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg models.Message) (*models.Reply, error)

func (f HandlerFunc) HandleMessage(ctx context.Context, msg models.Message) (*models.Reply, error) {
	return f(ctx, msg)
}

// Broker routes messages to registered tabs.
type Broker struct {
	timeout time.Duration

	mu   sync.RWMutex
	tabs map[string]Handler
}

// NewBroker creates a Broker. Send gives up after timeout; zero or negative
// means it waits for the caller's context only.
func NewBroker(timeout time.Duration) *Broker {
	return &Broker{
		timeout: timeout,
		tabs:    make(map[string]Handler),
	}
}

// Register adds h under a fresh tab id and returns the id.
func (b *Broker) Register(h Handler) string {
	id := uuid.NewString()
	b.mu.Lock()
	b.tabs[id] = h
	b.mu.Unlock()
	return id
}

// Unregister removes the tab. Messages in flight still complete.
func (b *Broker) Unregister(tabID string) {
	b.mu.Lock()
	delete(b.tabs, tabID)
	b.mu.Unlock()
}

// Len returns the number of registered tabs.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tabs)
}

func (b *Broker) handler(tabID string) (Handler, error) {
	b.mu.RLock()
	h, ok := b.tabs[tabID]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
	}
	return h, nil
}

// Send delivers msg to the tab and waits for its reply, the context, or the
// broker timeout, whichever comes first. There is no retry.
func (b *Broker) Send(ctx context.Context, tabID string, msg models.Message) (*models.Reply, error) {
	h, err := b.handler(tabID)
	if err != nil {
		return nil, err
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	type outcome struct {
		reply *models.Reply
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		reply, err := h.HandleMessage(ctx, msg)
		done <- outcome{reply, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if out.reply == nil {
			return nil, fmt.Errorf("%w: tab %s closed the exchange for %q", ErrNoResponse, tabID, msg.Action)
		}
		return out.reply, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Warn("messaging: reply timed out", "tab", tabID, "action", msg.Action, "timeout", b.timeout)
			return nil, fmt.Errorf("%w: tab %s: %v", ErrNoResponse, tabID, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// Notify delivers a fire-and-forget message. It waits for the handler to
// take the message (bounded like Send) but never for a reply, and a missing
// reply is not an error.
func (b *Broker) Notify(ctx context.Context, tabID string, msg models.Message) error {
	h, err := b.handler(tabID)
	if err != nil {
		return err
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := h.HandleMessage(ctx, msg); err != nil {
			slog.Debug("messaging: notify handler failed", "tab", tabID, "action", msg.Action, "error", err)
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Debug("messaging: notify not acknowledged", "tab", tabID, "action", msg.Action)
	}
	return nil
}
