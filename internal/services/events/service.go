// Package events implements the pub/sub bus between the job driver and
// delivery surfaces such as the WebSocket handler. Broadcast is
// fire-and-forget: publishing never blocks the scraping pipeline, and
// each subscriber drains its own queue so it observes events in
// publication order.
package events

import (
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

// subscriberBuffer is the per-subscriber queue depth. A subscriber that
// falls further behind loses newest events rather than stalling the
// publisher.
const subscriberBuffer = 256

// subscriber owns one handler and the channel its drain goroutine
// consumes.
type subscriber struct {
	ch chan models.Event
}

// Service fans events out to subscribed handlers, one queue per
// handler.
type Service struct {
	mu     sync.RWMutex
	subs   map[models.EventType][]*subscriber
	all    []*subscriber
	closed bool
	logger arbor.ILogger
}

// NewService creates a new event service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subs:   make(map[models.EventType][]*subscriber),
		logger: logger,
	}
}

// Subscribe registers a handler for one event type.
func (s *Service) Subscribe(eventType models.EventType, handler interfaces.EventHandler) {
	if handler == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.subs[eventType] = append(s.subs[eventType], s.newSubscriber(handler))
}

// SubscribeAll registers a handler for every event type.
func (s *Service) SubscribeAll(handler interfaces.EventHandler) {
	if handler == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.all = append(s.all, s.newSubscriber(handler))
}

// newSubscriber starts the drain goroutine that serializes delivery for
// one handler. Caller holds the mutex.
func (s *Service) newSubscriber(handler interfaces.EventHandler) *subscriber {
	sub := &subscriber{ch: make(chan models.Event, subscriberBuffer)}
	go func() {
		for event := range sub.ch {
			s.deliver(handler, event)
		}
	}()
	return sub
}

// deliver invokes one handler; a panicking handler loses the event but
// keeps its subscription.
func (s *Service) deliver(handler interfaces.EventHandler, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("event_type", string(event.Type)).
				Msgf("Event handler panicked: %v", r)
		}
	}()
	handler(event)
}

// Broadcast queues the event for all matching subscribers. Never
// blocks; a full subscriber queue drops the event for that subscriber
// only. Implements interfaces.Broadcaster.
func (s *Service) Broadcast(event models.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	for _, sub := range s.all {
		s.enqueue(sub, event)
	}
	for _, sub := range s.subs[event.Type] {
		s.enqueue(sub, event)
	}
}

func (s *Service) enqueue(sub *subscriber, event models.Event) {
	select {
	case sub.ch <- event:
	default:
		s.logger.Warn().
			Str("event_type", string(event.Type)).
			Msg("Subscriber queue full, dropping event")
	}
}

// Close drops all subscribers and stops their drain goroutines;
// subsequent broadcasts are no-ops.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, sub := range s.all {
		close(sub.ch)
	}
	for _, subs := range s.subs {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	s.subs = make(map[models.EventType][]*subscriber)
	s.all = nil
}

var _ interfaces.Broadcaster = (*Service)(nil)
