package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Topics
const (
	// TopicStaff carries new bookings and consultations for studio staff
	TopicStaff = "staff"
)

// Event types
const (
	TypeBookingCreated      = "booking.created"
	TypeConsultationCreated = "consultation.created"
	TypeBookingStatus       = "booking.status"
)

const defaultBufferSize = 16

// Event is a single live update
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

// New builds an event with data encoded as JSON
func New(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw, Time: time.Now().UTC()}, nil
}

// SessionTopic returns the topic of a visitor session
func SessionTopic(token string) string {
	return "session:" + token
}

// Publisher sends events to a topic
type Publisher interface {
	Publish(topic string, ev Event)
}

// Subscription is a live stream of events on one topic
type Subscription struct {
	C      <-chan Event
	topic  string
	ch     chan Event
	hub    *Hub
	closed bool
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() string {
	return s.topic
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithBufferSize sets each subscriber's channel capacity
func WithBufferSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithSubscriberHook is called with the total subscriber count on every change
func WithSubscriberHook(fn func(total int)) HubOption {
	return func(h *Hub) {
		h.onChange = fn
	}
}

// Hub fans events out to topic subscribers.
// A full subscriber channel drops the event instead of blocking the publisher.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*Subscription]struct{}
	total      int
	bufferSize int
	onChange   func(total int)
}

// NewHub creates an empty hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		topics:     make(map[string]map[*Subscription]struct{}),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe starts a subscription on topic
func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan Event, h.bufferSize)
	sub := &Subscription{C: ch, topic: topic, ch: ch, hub: h}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.total++
	total := h.total
	h.mu.Unlock()

	h.notify(total)
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if sub.closed {
		h.mu.Unlock()
		return
	}
	sub.closed = true
	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	close(sub.ch)
	h.total--
	total := h.total
	h.mu.Unlock()

	h.notify(total)
}

// Publish delivers ev to every subscriber of topic
func (h *Hub) Publish(topic string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.ch <- ev:
		default:
			slog.Warn("dropping event for slow subscriber", "topic", topic, "type", ev.Type)
		}
	}
}

// Subscribers returns the number of subscribers on topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) notify(total int) {
	if h.onChange != nil {
		h.onChange(total)
	}
}
