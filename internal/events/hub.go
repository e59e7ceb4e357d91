package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultQueueSize  = 100
	defaultPutTimeout = 1 * time.Second

	// KeepaliveInterval is how long a serving loop waits on an idle
	// queue before emitting a keepalive instead of data.
	KeepaliveInterval = 30 * time.Second
)

// Subscriber is one live pull-style listener on the broadcast feed. Its
// queue is written only by Hub.Publish and read only by the owning
// serving loop.
type Subscriber struct {
	ID     string
	Events chan Event
	Done   chan struct{}
}

// Hub fans out job/queue events to every subscriber. Delivery is
// best-effort: a queue that cannot accept an event within the put
// timeout belongs to a dead or stuck consumer and is dropped, so one
// slow subscriber never blocks its peers for more than the timeout.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
	queueSize   int
	putTimeout  time.Duration
}

type HubOption func(h *Hub)

func WithQueueSize(n int) HubOption {
	return func(h *Hub) {
		h.queueSize = n
	}
}

func WithPutTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		h.putTimeout = d
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subscribers: make(map[string]*Subscriber),
		queueSize:   defaultQueueSize,
		putTimeout:  defaultPutTimeout,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Subscribe registers a new bounded queue and returns it. The caller
// owns the read side and must Unsubscribe when done.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:     uuid.NewString(),
		Events: make(chan Event, h.queueSize),
		Done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	zap.S().Named("hub").Infof("subscriber added. total subscribers: %d", count)
	return sub
}

// Unsubscribe removes the subscriber. Idempotent.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// remove must be called with the hub locked.
func (h *Hub) remove(sub *Subscriber) {
	if _, ok := h.subscribers[sub.ID]; !ok {
		return
	}
	delete(h.subscribers, sub.ID)
	close(sub.Done)
	zap.S().Named("hub").Infof("subscriber removed. total subscribers: %d", len(h.subscribers))
}

// Publish enqueues the event on every subscriber queue, waiting at most
// the put timeout per queue. Subscribers that time out are presumed
// dead and removed; the event is skipped for them.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subscribers) == 0 {
		return
	}

	var dead []*Subscriber
	for _, sub := range h.subscribers {
		select {
		case sub.Events <- event:
		case <-time.After(h.putTimeout):
			zap.S().Named("hub").Warnf("subscriber %s queue full, dropping", sub.ID)
			dead = append(dead, sub)
		}
	}

	for _, sub := range dead {
		h.remove(sub)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close drops every subscriber, signalling their serving loops to stop.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		h.remove(sub)
	}
}
