package core

import "sync"

// Rooms associates connections with group rooms for relay purposes. The
// association carries no persisted state: it is rebuilt from the user's
// group memberships on every reconnect.
type Rooms struct {
	mu     sync.Mutex
	rooms  map[string]map[*Conn]struct{}
	byConn map[*Conn]map[string]struct{}
}

// NewRooms constructs an empty room membership router.
func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[*Conn]struct{}),
		byConn: make(map[*Conn]map[string]struct{}),
	}
}

// Join subscribes the connection to a room. Idempotent; may be invoked at
// any point after registration, e.g. right after the user is added to a
// group. Returns true if the connection was newly added.
func (r *Rooms) Join(conn *Conn, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[*Conn]struct{})
		r.rooms[roomID] = members
	}
	if _, exists := members[conn]; exists {
		return false
	}
	members[conn] = struct{}{}

	joined, ok := r.byConn[conn]
	if !ok {
		joined = make(map[string]struct{})
		r.byConn[conn] = joined
	}
	joined[roomID] = struct{}{}
	return true
}

// Drop removes the connection from every room it joined. Called on
// disconnect; empty rooms are discarded.
func (r *Rooms) Drop(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.byConn[conn] {
		members := r.rooms[roomID]
		delete(members, conn)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	delete(r.byConn, conn)
}

// members returns a snapshot of the connections joined to a room.
func (r *Rooms) members(roomID string) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]*Conn, 0, len(r.rooms[roomID]))
	for conn := range r.rooms[roomID] {
		conns = append(conns, conn)
	}
	return conns
}
