// Package realtime pushes advisory change events to connected dashboards. Events tell a
// client what to re-fetch; they are never the source of truth.
package realtime

import (
	"context"
	"sync"
	"time"
)

// Event names an entity that changed. Audience lists the user ids it is addressed to.
type Event struct {
	Type     string    `json:"type"`
	Entity   string    `json:"entity"`
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Audience []string  `json:"-"`
}

func NewEvent(typ, entity, id string, audience ...string) Event {
	return Event{Type: typ, Entity: entity, ID: id, At: time.Now().UTC(), Audience: audience}
}

// Publisher is what handlers use to announce a change.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

const subscriberBuffer = 16

type Subscription struct {
	C      <-chan Event
	hub    *Hub
	userID string
	ch     chan Event
	once   sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub fans events out to the subscribers held by this process.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	s := &Subscription{C: ch, hub: h, userID: userID, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][s] = struct{}{}
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.userID)
		}
	}
	close(s.ch)
}

// Deliver hands e to every local subscriber in its audience. Slow subscribers miss
// events rather than block the publisher.
func (h *Hub) Deliver(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range e.Audience {
		for s := range h.subs[userID] {
			select {
			case s.ch <- e:
			default:
			}
		}
	}
}

// Publish delivers locally. It satisfies Publisher for single-instance deployments.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.Deliver(e)
	return nil
}

// Subscribers reports how many connections are open for a user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
