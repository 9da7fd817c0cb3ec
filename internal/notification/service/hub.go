package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/notification/domain"
)

const defaultSubscriberBuffer = 16

type subscription struct {
	events chan domain.Event
}

// Hub fans notifications out to the connected clients of each user. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*subscription]struct{}
	buffer      int
}

// NewHub creates a Hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]map[*subscription]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a listener for userID. The returned function unsubscribes and closes
// the channel; it is safe to call more than once.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan domain.Event, func()) {
	sub := &subscription{events: make(chan domain.Event, h.buffer)}

	h.mu.Lock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[*subscription]struct{})
		h.subscribers[userID] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.events, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.subscribers, userID)
			}
			close(sub.events)
		})
	}
}

// Publish delivers event to the recipient's subscribers and returns how many received it.
func (h *Hub) Publish(event domain.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subscribers[event.UserID] {
		select {
		case sub.events <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// Notify publishes event. It lets the hub serve as a Notifier when no outbox is configured.
func (h *Hub) Notify(_ context.Context, event domain.Event) error {
	h.Publish(event)
	return nil
}

// Subscribers returns the number of active subscriptions for userID.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
