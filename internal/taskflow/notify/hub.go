// Package notify fans domain events out to websocket subscribers.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

// DefaultQueueSize is the per-connection send buffer.
const DefaultQueueSize = 32

type HubOptions struct {
	QueueSize  int
	Logger     *slog.Logger
	Registerer prometheus.Registerer // nil disables metrics
	Namespace  string
}

// Hub tracks connected clients and the topics each one follows. Publish
// never blocks: a subscriber whose queue is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	clients map[*Client]struct{}

	queueSize int
	logger    *slog.Logger

	connected prometheus.Gauge
	delivered prometheus.Counter
	dropped   prometheus.Counter
}

func NewHub(opts HubOptions) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Hub{
		topics:    make(map[string]map[*Client]struct{}),
		clients:   make(map[*Client]struct{}),
		queueSize: opts.QueueSize,
		logger:    opts.Logger,
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "ws_connections",
			Help:      "Open websocket connections.",
		}),
		delivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "ws_events_delivered_total",
			Help:      "Events queued to websocket connections.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "ws_events_dropped_total",
			Help:      "Events dropped because a connection's queue was full.",
		}),
	}
}

// Publish delivers e to every local subscriber of e.Topic.
func (h *Hub) Publish(ctx context.Context, e domain.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode event", "type", e.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[e.Topic] {
		if c.enqueue(msg) {
			h.delivered.Inc()
		} else {
			h.dropped.Inc()
			h.logger.Warn("websocket queue full, event dropped",
				"user_id", c.userID, "type", e.Type, "topic", e.Topic)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.connected.Inc()
}

// unregister drops c from every topic and closes its queue. Safe to call
// more than once.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for topic := range c.topics {
		h.removeLocked(c, topic)
	}
	delete(h.clients, c)
	close(c.send)
	h.connected.Dec()
}

// Subscribe adds c to topic.
func (h *Hub) Subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}
	c.topics[topic] = struct{}{}
}

// Unsubscribe removes c from topic.
func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, topic)
}

func (h *Hub) removeLocked(c *Client, topic string) {
	delete(c.topics, topic)
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Subscribers returns how many clients follow topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
