// Package events fans session lifecycle events out to tenant websocket subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types.
const (
	TypeSessionOpened = "session.opened"
	TypeSessionClosed = "session.closed"
)

// Event is pushed to every subscriber of the tenant.
type Event struct {
	Type             string    `json:"type"`
	TenantID         int64     `json:"tenant_id"`
	SessionID        int64     `json:"session_id"`
	Plate            string    `json:"plate"`
	OperatorID       int64     `json:"operator_id"`
	At               time.Time `json:"at"`
	PendingBalance   int64     `json:"pending_balance,omitempty"`
	Fee              int64     `json:"fee,omitempty"`
	RemainingBalance int64     `json:"remaining_balance,omitempty"`
}

// Subscriber receives encoded events for one tenant.
type Subscriber struct {
	tenantID int64
	ch       chan []byte
}

// TenantID returns the subscribed tenant.
func (s *Subscriber) TenantID() int64 {
	return s.tenantID
}

// Messages is closed when the subscriber is removed from the hub.
func (s *Subscriber) Messages() <-chan []byte {
	return s.ch
}

// Hub tracks subscribers per tenant.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int64]map[*Subscriber]struct{}
	buffer      int
	logger      *zap.Logger
}

// NewHub builds hub. buffer is the per-subscriber queue length.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subscribers: make(map[int64]map[*Subscriber]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe registers a subscriber for tenantID.
func (h *Hub) Subscribe(tenantID int64) *Subscriber {
	sub := &Subscriber{tenantID: tenantID, ch: make(chan []byte, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[tenantID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subscribers[tenantID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[sub.tenantID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subscribers, sub.tenantID)
	}
}

// Publish delivers event to the tenant's subscribers without blocking. Slow subscribers
// lose the event.
func (h *Hub) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers[event.TenantID] {
		select {
		case sub.ch <- payload:
		default:
			h.logger.Warn("dropping event, subscriber buffer full",
				zap.Int64("tenant_id", event.TenantID),
				zap.String("type", event.Type),
			)
		}
	}
}

// Count returns the number of subscribers of tenantID.
func (h *Hub) Count(tenantID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tenantID])
}
