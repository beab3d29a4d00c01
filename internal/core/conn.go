package core

// eventBuffer bounds the per-connection outbound queue. Events of the same
// name to the same connection are delivered in send order as long as the
// consumer keeps up; a full buffer drops the event rather than blocking the
// sender.
const eventBuffer = 32

// Conn is one live bidirectional channel to a client, as seen by the
// coordination layer. The transport owns its lifetime: created on connect,
// discarded on disconnect, never persisted.
type Conn struct {
	UserID string
	events chan Event
}

// NewConn constructs a connection handle for the given user identity.
func NewConn(userID string) *Conn {
	return &Conn{
		UserID: userID,
		events: make(chan Event, eventBuffer),
	}
}

// Events exposes the outbound queue for the transport's write loop.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// send enqueues an event without blocking. Returns false if the event was
// dropped because the consumer is too slow.
func (c *Conn) send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}
