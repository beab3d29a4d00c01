package core

// Relay delivers named ephemeral events to live connections. Delivery is
// fire-and-forget: no acknowledgement, no retry. Each target's queue is
// independent, so a slow consumer never stalls delivery to others, and no
// registry or room lock is held while enqueueing.
type Relay struct {
	registry *Registry
	rooms    *Rooms
}

// NewRelay builds a relay over the given registry and room router.
func NewRelay(registry *Registry, rooms *Rooms) *Relay {
	return &Relay{registry: registry, rooms: rooms}
}

// ToUser delivers an event to the user's live connection. Returns false if
// the user is offline; for chat events that is a no-op, not an error.
func (r *Relay) ToUser(userID string, ev Event) bool {
	conn, ok := r.registry.Lookup(userID)
	if !ok {
		return false
	}
	conn.send(ev)
	return true
}

// ToRoomExcept delivers an event to every connection joined to the room
// other than the sender's own.
func (r *Relay) ToRoomExcept(roomID string, sender *Conn, ev Event) {
	for _, conn := range r.rooms.members(roomID) {
		if conn == sender {
			continue
		}
		conn.send(ev)
	}
}

// ToRoomExceptUser is ToRoomExcept addressed by user identity, for callers
// that hold no connection handle. All of the sender's room presence is
// excluded via the registry mapping.
func (r *Relay) ToRoomExceptUser(roomID, userID string, ev Event) {
	sender, _ := r.registry.Lookup(userID)
	r.ToRoomExcept(roomID, sender, ev)
}

// BroadcastAll delivers an event to every registered connection.
func (r *Relay) BroadcastAll(ev Event) {
	for _, conn := range r.registry.snapshot() {
		conn.send(ev)
	}
}

// CallOffer routes a call offer to the target user. When the target is
// offline the attempt terminates immediately: a synthetic call_declined is
// delivered back to the caller and nothing reaches the target.
func (r *Relay) CallOffer(caller *Conn, targetID string, ev Event) {
	if r.ToUser(targetID, ev) {
		return
	}
	caller.send(Event{Name: EventCallDeclined})
}
