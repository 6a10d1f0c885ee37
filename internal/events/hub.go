package events

import (
	"sync"
	"time"
)

// Type identifies a queue engine event.
type Type string

const (
	TypeJobAdded         Type = "job_added"
	TypeJobRemoved       Type = "job_removed"
	TypeJobMoved         Type = "job_moved"
	TypeJobStatusChanged Type = "job_status_changed"
	TypeQueueStarted     Type = "queue_started"
	TypeQueuePaused      Type = "queue_paused"
	TypeQueueStopped     Type = "queue_stopped"
	TypeQueueCompleted   Type = "queue_completed"
)

// Event is a single engine notification delivered to subscribers. Index is
// the job's position in the active queue at emission time, or -1 when the
// event carries no position. Status is the lowercase job status name for
// status-change events.
type Event struct {
	Type      Type      `json:"type"`
	JobID     string    `json:"job_id,omitempty"`
	JobName   string    `json:"job_name,omitempty"`
	Index     int       `json:"index"`
	FromIndex int       `json:"from_index,omitempty"`
	ToIndex   int       `json:"to_index,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"ts"`
}

const defaultSubscriberBuffer = 64

// Hub fans engine events out to subscribers. Delivery never blocks a
// publisher: when a subscriber's buffer is full its oldest event is dropped.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a new listener and returns its channel along with a
// cancel function. The channel is closed on cancel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, defaultSubscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if existing, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber, dropping the oldest queued
// event for any subscriber that has fallen behind.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
