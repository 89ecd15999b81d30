package subscription

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskly-api/domain"
)

// sendBuffer is the per-subscriber backlog; a subscriber this far behind
// is dropped rather than allowed to stall the stream.
const sendBuffer = 16

// Subscriber is one connected live-update client.
type Subscriber struct {
	ID   string
	send chan []byte
}

// Messages returns the subscriber's outbound frames. The channel is
// closed when the hub drops the subscriber.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Hub tracks connected live-update subscribers and fans change
// notifications out to all of them. Delivery is best-effort: a dead or
// slow subscriber is removed without affecting the others.
type Hub struct {
	log *log.Logger

	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{log: logger, subs: make(map[*Subscriber]struct{})}
}

// Register adds a new subscriber to the live set and returns it.
func (h *Hub) Register() *Subscriber {
	sub := &Subscriber{ID: uuid.NewString(), send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unregister removes a subscriber and closes its channel. Removing an
// already-absent subscriber is a no-op.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast serializes the event once and pushes it to every connected
// subscriber without blocking. A subscriber whose backlog is full is
// dropped; the remaining subscribers still receive the event.
func (h *Hub) Broadcast(ev domain.ChangeEvent) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		h.log.Errorf("marshal change event: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- data:
		default:
			h.log.WithField("subscriber", sub.ID).Warn("subscriber too slow, dropping")
			delete(h.subs, sub)
			close(sub.send)
		}
	}
}
