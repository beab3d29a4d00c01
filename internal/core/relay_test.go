package core

import "testing"

func newTestRelay() (*Relay, *Registry, *Rooms) {
	reg := NewRegistry()
	rooms := NewRooms()
	return NewRelay(reg, rooms), reg, rooms
}

func mustEvent(t *testing.T, conn *Conn, name string) Event {
	t.Helper()

	for {
		select {
		case ev := <-conn.Events():
			// Registry broadcasts interleave with relayed events.
			if ev.Name == EventOnlineUsers && name != EventOnlineUsers {
				continue
			}
			if ev.Name != name {
				t.Fatalf("expected event %q, got %q", name, ev.Name)
			}
			return ev
		default:
			t.Fatalf("expected a queued %q event", name)
		}
	}
}

func assertNoEvent(t *testing.T, conn *Conn) {
	t.Helper()

	for {
		select {
		case ev := <-conn.Events():
			if ev.Name != EventOnlineUsers {
				t.Fatalf("unexpected event %q", ev.Name)
			}
		default:
			return
		}
	}
}

func TestRelayToUserOfflineIsNoOp(t *testing.T) {
	relay, _, _ := newTestRelay()

	if relay.ToUser("ghost", Event{Name: EventTyping}) {
		t.Fatalf("expected delivery to an offline user to report false")
	}
}

func TestRelayToUserPreservesOrderPerTarget(t *testing.T) {
	relay, reg, _ := newTestRelay()
	bob := NewConn("bob")
	reg.Register(bob)
	mustEvent(t, bob, EventOnlineUsers)

	relay.ToUser("bob", Event{Name: EventTyping, Data: "1"})
	relay.ToUser("bob", Event{Name: EventTyping, Data: "2"})

	if ev := mustEvent(t, bob, EventTyping); ev.Data != "1" {
		t.Fatalf("expected first event, got %v", ev.Data)
	}
	if ev := mustEvent(t, bob, EventTyping); ev.Data != "2" {
		t.Fatalf("expected second event, got %v", ev.Data)
	}
}

func TestRelayToRoomExceptSender(t *testing.T) {
	relay, reg, rooms := newTestRelay()

	alice := NewConn("alice")
	bob := NewConn("bob")
	carol := NewConn("carol")
	for _, conn := range []*Conn{alice, bob, carol} {
		reg.Register(conn)
		rooms.Join(conn, "g1")
	}

	relay.ToRoomExcept("g1", alice, Event{Name: EventGroupTyping})

	mustEvent(t, bob, EventGroupTyping)
	mustEvent(t, carol, EventGroupTyping)
	assertNoEvent(t, alice)
}

func TestRelayToRoomExceptUser(t *testing.T) {
	relay, reg, rooms := newTestRelay()

	alice := NewConn("alice")
	bob := NewConn("bob")
	reg.Register(alice)
	reg.Register(bob)
	rooms.Join(alice, "g1")
	rooms.Join(bob, "g1")

	relay.ToRoomExceptUser("g1", "alice", Event{Name: EventGroupChatCleared})

	mustEvent(t, bob, EventGroupChatCleared)
	assertNoEvent(t, alice)
}

func TestRelayBroadcastAll(t *testing.T) {
	relay, reg, _ := newTestRelay()

	alice := NewConn("alice")
	bob := NewConn("bob")
	reg.Register(alice)
	reg.Register(bob)

	relay.BroadcastAll(Event{Name: EventChatCleared})

	mustEvent(t, alice, EventChatCleared)
	mustEvent(t, bob, EventChatCleared)
}

func TestRelayCallOfferToOfflineTargetDeclines(t *testing.T) {
	relay, reg, _ := newTestRelay()

	caller := NewConn("carol")
	reg.Register(caller)
	mustEvent(t, caller, EventOnlineUsers)

	relay.CallOffer(caller, "dave", Event{Name: EventCallOffer})

	// Caller gets a synthetic decline; nothing reaches the target.
	mustEvent(t, caller, EventCallDeclined)
}

func TestRelayCallOfferToOnlineTarget(t *testing.T) {
	relay, reg, _ := newTestRelay()

	caller := NewConn("carol")
	target := NewConn("dave")
	reg.Register(caller)
	reg.Register(target)

	relay.CallOffer(caller, "dave", Event{Name: EventCallOffer, Data: "signal"})

	if ev := mustEvent(t, target, EventCallOffer); ev.Data != "signal" {
		t.Fatalf("expected offer payload to pass through, got %v", ev.Data)
	}
	assertNoEvent(t, caller)
}
