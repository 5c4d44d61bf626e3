package interfaces

import "github.com/rjdeboer/captare/internal/models"

// EventHandler consumes one broadcast event.
type EventHandler func(event models.Event)

// Broadcaster delivers job events to subscribed clients. Broadcast is
// fire-and-forget: it never blocks the caller and delivery failures are
// swallowed by the implementation.
type Broadcaster interface {
	Broadcast(event models.Event)
}
