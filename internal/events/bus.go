package events

import (
	"log"
	"sync"
)

// Domain event names carried over the bus.
const (
	UserRegistered    = "user.registered"
	ReviewCreated     = "review.created"
	DiscussionCreated = "discussion.created"
	DiscussionSticky  = "discussion.sticky"
	PostCreated       = "post.created"
)

// Handler processes a single event payload. Handlers are expected to be
// idempotent; any error they return is logged by the bus and never
// propagated to the publisher.
type Handler func(payload any) error

// Bus is an in-process, non-durable publish/subscribe register. It has no
// persistence and no retry: if the process stops between a committed
// transaction and Publish, the event is lost. Construct one with NewBus
// and inject it into every service that publishes or subscribes.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the named event. Handlers for the
// same name run in registration order.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish invokes every handler registered for name, synchronously in the
// caller's goroutine. Handler errors and panics are caught and logged so
// they never affect the publisher or the remaining handlers.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	handlers := b.handlers[name]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(name, h, payload)
	}
}

func (b *Bus) dispatch(name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[EVENTS] Handler panic for %s: %v", name, r)
		}
	}()

	if err := h(payload); err != nil {
		log.Printf("[EVENTS] Handler error for %s: %v", name, err)
	}
}
