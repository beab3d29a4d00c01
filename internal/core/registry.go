package core

import (
	"sort"
	"sync"
)

// Registry tracks which users are currently reachable. It maps a user
// identity to its single live connection; a later registration under the
// same identity replaces the earlier mapping.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

// NewRegistry constructs an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
	}
}

// Register stores the connection as the live one for its user and broadcasts
// the updated online-id list to every connection.
func (r *Registry) Register(conn *Conn) {
	r.mu.Lock()
	r.conns[conn.UserID] = conn
	targets, ids := r.snapshotLocked()
	r.mu.Unlock()

	broadcastOnline(targets, ids)
}

// Unregister removes the mapping for the connection's user and broadcasts
// the updated online-id list. The mapping is removed only if it still points
// at this exact handle, so a stale disconnect cannot erase a newer
// connection's registration.
func (r *Registry) Unregister(conn *Conn) {
	r.mu.Lock()
	current, ok := r.conns[conn.UserID]
	if !ok || current != conn {
		r.mu.Unlock()
		return
	}
	delete(r.conns, conn.UserID)
	targets, ids := r.snapshotLocked()
	r.mu.Unlock()

	broadcastOnline(targets, ids)
}

// Lookup returns the live connection for a user. Absence is a normal result,
// not an error.
func (r *Registry) Lookup(userID string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// OnlineIDs returns the ids of all currently registered users, sorted.
func (r *Registry) OnlineIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ids := r.snapshotLocked()
	return ids
}

// snapshot returns all currently registered connections.
func (r *Registry) snapshot() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	targets, _ := r.snapshotLocked()
	return targets
}

func (r *Registry) snapshotLocked() ([]*Conn, []string) {
	targets := make([]*Conn, 0, len(r.conns))
	ids := make([]string, 0, len(r.conns))
	for id, conn := range r.conns {
		targets = append(targets, conn)
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return targets, ids
}

// broadcastOnline delivers the online-id list outside the registry lock.
func broadcastOnline(targets []*Conn, ids []string) {
	ev := Event{Name: EventOnlineUsers, Data: ids}
	for _, conn := range targets {
		conn.send(ev)
	}
}
