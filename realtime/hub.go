package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNoSubscribers means nobody was listening on the topic; the event is dropped.
var ErrNoSubscribers = errors.New("no subscribers")

// ErrHubClosed is returned by Register and Subscribe after Close.
var ErrHubClosed = errors.New("hub closed")

// Frame is the JSON shape of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Topic is the per-user topic name.
func Topic(userID uint) string {
	return fmt.Sprintf("user_%d", userID)
}

// Hub is the in-process connection registry. It maps topics to the sessions
// subscribed to them and is the only place that state lives.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}
	closed  bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics:  map[string]map[*Client]struct{}{},
		clients: map[*Client]map[string]struct{}{},
	}
}

// Register tracks a connected client so Close can reach it.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.clients[c]; !ok {
		h.clients[c] = map[string]struct{}{}
	}
	return nil
}

// Subscribe adds c to topic. Subscribing twice is a no-op.
func (h *Hub) Subscribe(c *Client, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = map[*Client]struct{}{}
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}

	memberships, ok := h.clients[c]
	if !ok {
		memberships = map[string]struct{}{}
		h.clients[c] = memberships
	}
	memberships[topic] = struct{}{}
	return nil
}

// Remove drops every membership of c.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.clients[c] {
		if subs := h.topics[topic]; subs != nil {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	delete(h.clients, c)
}

// Publish queues frame on every session of topic and returns how many took it.
func (h *Hub) Publish(topic string, frame []byte) (int, error) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0, ErrNoSubscribers
	}
	delivered := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			delivered++
		}
	}
	return delivered, nil
}

// PublishToUser encodes {event, data} and publishes it on the user's topic.
func (h *Hub) PublishToUser(userID uint, event string, payload any) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	_, err = h.Publish(Topic(userID), frame)
	return err
}

// SubscriberCount reports the sessions on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close disconnects every client. The hub rejects new registrations afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.topics = map[string]map[*Client]struct{}{}
	h.clients = map[*Client]map[string]struct{}{}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func encodeFrame(event string, payload any) ([]byte, error) {
	return json.Marshal(outFrame{Event: event, Data: payload})
}
