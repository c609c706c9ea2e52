// Package events carries task status changes to live listeners (websocket
// clients) and, when configured, to a RabbitMQ topic exchange.
package events

import (
	"context"
	"log"
	"sync"
	"time"
)

// Status is one observable change of a booking task.
type Status struct {
	TaskID      int64     `json:"task_id"`
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
	TriggerTime time.Time `json:"trigger_time"`
	Reservation string    `json:"reservation_code,omitempty"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, s Status) error
}

type Noop struct{}

func (Noop) Publish(context.Context, Status) error { return nil }

// Multi publishes to every target; failures are logged, never returned, so a
// broker outage cannot fail a booking.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, s Status) error {
	for _, p := range m {
		if err := p.Publish(ctx, s); err != nil {
			log.Printf("[Events] publish failed task=%d status=%s err=%v", s.TaskID, s.Status, err)
		}
	}
	return nil
}

// Hub fans status changes out to in-process subscribers keyed by task id.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[chan Status]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[int64]map[chan Status]struct{}{}}
}

// Subscribe returns a buffered channel and a cancel func that must be called.
func (h *Hub) Subscribe(taskID int64) (<-chan Status, func()) {
	ch := make(chan Status, 8)
	h.mu.Lock()
	if h.subs[taskID] == nil {
		h.subs[taskID] = map[chan Status]struct{}{}
	}
	h.subs[taskID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[taskID], ch)
			if len(h.subs[taskID]) == 0 {
				delete(h.subs, taskID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish never blocks: a slow subscriber drops updates.
func (h *Hub) Publish(_ context.Context, s Status) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[s.TaskID] {
		select {
		case ch <- s:
		default:
		}
	}
	return nil
}
