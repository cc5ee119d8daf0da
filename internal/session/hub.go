package session

import (
	"sync"

	"ugcstudio/internal/infra"
	"ugcstudio/internal/studio"
)

const defaultSubscriberBuffer = 64

// Hub fans run events out to subscribers keyed by topic.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *infra.Logger
}

// Subscription receives events for one topic until Close is called.
type Subscription struct {
	C <-chan studio.Event

	ch    chan studio.Event
	topic string
	hub   *Hub
	once  sync.Once
}

func NewHub(logger *infra.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	if logger == nil {
		l := infra.NopLogger()
		logger = &l
	}
	return &Hub{subs: map[string]map[*Subscription]struct{}{}, buffer: buffer, logger: logger}
}

func RunTopic(runID string) string           { return "run:" + runID }
func WorkspaceTopic(workspace string) string { return "workspace:" + workspace }

func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan studio.Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, topic: topic, hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[topic]
	if !ok {
		set = map[*Subscription]struct{}{}
		h.subs[topic] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[s.topic]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.topic)
			}
		}
		close(s.ch)
	})
}

// Publish never blocks. A subscriber whose buffer is full misses the event.
func (h *Hub) Publish(topic string, e studio.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[topic] {
		select {
		case sub.ch <- e:
		default:
			h.logger.Warn().
				Str("topic", topic).
				Str("event", string(e.Kind)).
				Str("run_id", e.RunID).
				Msg("session: slow subscriber dropped event")
		}
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}
