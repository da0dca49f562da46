package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fixhubapp/fixhub-backend/pkg/enums"
	"github.com/fixhubapp/fixhub-backend/pkg/logger"
	"github.com/fixhubapp/fixhub-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Event is a single feed item pushed to subscribed technician clients. Data
// holds the outbox payload exactly as it was published.
type Event struct {
	Type enums.OutboxEventType `json:"type"`
	Data json.RawMessage       `json:"data"`
}

// Subscription is a cancellable handle on the dispatch feed. Events stops
// delivering after Cancel; cancelling twice is safe.
type Subscription struct {
	ID           uuid.UUID
	TechnicianID uuid.UUID
	Events       chan Event

	hub  *Hub
	once sync.Once
}

// Cancel detaches the subscription from the hub and closes Events.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.unsubscribe(s.ID)
	})
}

// Hub fans dispatch events out to connected technician clients. Delivery is
// best-effort: a subscriber that cannot keep up is disconnected rather than
// blocking the rest, and reconciles through the pull-based order list.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription

	buffer  int
	metrics *metrics.DispatchMetrics
	logg    *logger.Logger
}

// NewHub builds a feed hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, m *metrics.DispatchMetrics, logg *logger.Logger) (*Hub, error) {
	if buffer <= 0 {
		return nil, fmt.Errorf("subscriber buffer must be positive")
	}
	if m == nil {
		return nil, fmt.Errorf("dispatch metrics required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Hub{
		subs:    make(map[uuid.UUID]*Subscription),
		buffer:  buffer,
		metrics: m,
		logg:    logg,
	}, nil
}

// Subscribe attaches a technician client to the feed.
func (h *Hub) Subscribe(ctx context.Context, technicianID uuid.UUID) *Subscription {
	sub := &Subscription{
		ID:           uuid.New(),
		TechnicianID: technicianID,
		Events:       make(chan Event, h.buffer),
		hub:          h,
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	total := len(h.subs)
	h.mu.Unlock()

	h.metrics.SetFeedSubscribers(total)
	h.logg.Info(h.logg.WithFields(ctx, map[string]any{
		"subscription_id": sub.ID.String(),
		"technician_id":   technicianID.String(),
		"subscribers":     total,
	}), "dispatch feed subscriber attached")
	return sub
}

func (h *Hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	close(sub.Events)
	delete(h.subs, id)
	h.metrics.SetFeedSubscribers(len(h.subs))
}

// Publish delivers the event to every subscriber whose buffer has room. A
// full buffer tears the subscriber down: the closed Events channel ends its
// stream, and the client reconciles through the pull-based order list.
func (h *Hub) Publish(ctx context.Context, event Event) {
	var stale []*Subscription
	h.mu.RLock()
	for _, sub := range h.subs {
		select {
		case sub.Events <- event:
		default:
			stale = append(stale, sub)
		}
	}
	h.mu.RUnlock()

	// Cancel takes the write lock, so the channel never closes while a
	// concurrent Publish could still send on it.
	for _, sub := range stale {
		h.metrics.IncFeedDrops()
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{
			"subscription_id": sub.ID.String(),
			"technician_id":   sub.TechnicianID.String(),
			"event_type":      event.Type,
		}), "dispatch feed subscriber too slow, disconnecting")
		sub.Cancel()
	}
}

// SubscriberCount reports how many clients are currently attached.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
