package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crewdeckhq/crewdeck/pkg/logger"
	"github.com/crewdeckhq/crewdeck/pkg/metrics"
)

// UserJoinedCompany is emitted after a membership becomes active, whatever
// path led there: code join, request approval or invitation acceptance.
type UserJoinedCompany struct {
	CompanyID uint64
	MemberID  string
	UserID    string
}

// UserJoinedHandler reacts to a UserJoinedCompany event.
type UserJoinedHandler interface {
	HandleUserJoined(ctx context.Context, event UserJoinedCompany)
}

// UserJoinedHandlerFunc adapts a function into a UserJoinedHandler.
type UserJoinedHandlerFunc func(ctx context.Context, event UserJoinedCompany)

// HandleUserJoined invokes the function.
func (f UserJoinedHandlerFunc) HandleUserJoined(ctx context.Context, event UserJoinedCompany) {
	f(ctx, event)
}

const handlerTimeout = 30 * time.Second

// Bus dispatches domain events to subscribers asynchronously. Publishing
// never blocks the caller and never surfaces handler failures to it; a
// handler that panics is logged and the remaining handlers still run.
type Bus struct {
	mu       sync.RWMutex
	handlers []UserJoinedHandler
	wg       sync.WaitGroup
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeUserJoined registers a handler for UserJoinedCompany events.
func (b *Bus) SubscribeUserJoined(handler UserJoinedHandler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// PublishUserJoined dispatches the event to every subscriber in the
// background and returns immediately. Handlers receive a fresh context
// detached from the request that triggered the event.
func (b *Bus) PublishUserJoined(event UserJoinedCompany) {
	b.mu.RLock()
	handlers := make([]UserJoinedHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	metrics.JoinEvents.Inc()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		for _, handler := range handlers {
			b.dispatch(ctx, handler, event)
		}
	}()
}

func (b *Bus) dispatch(ctx context.Context, handler UserJoinedHandler, event UserJoinedCompany) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panic",
				zap.Uint64("company_id", event.CompanyID),
				zap.String("user_id", event.UserID),
				zap.Any("panic", r))
		}
	}()
	handler.HandleUserJoined(ctx, event)
}

// Wait blocks until all in-flight event dispatches finish. Intended for
// graceful shutdown and tests.
func (b *Bus) Wait() {
	b.wg.Wait()
}
