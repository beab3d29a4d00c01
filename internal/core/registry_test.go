package core

import (
	"reflect"
	"testing"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	alice := NewConn("alice")
	reg.Register(alice)

	got, ok := reg.Lookup("alice")
	if !ok || got != alice {
		t.Fatalf("expected alice's connection, got %v (ok=%v)", got, ok)
	}
	if _, ok := reg.Lookup("bob"); ok {
		t.Fatalf("expected bob to be offline")
	}
}

func TestRegistryLastRegisteredWins(t *testing.T) {
	reg := NewRegistry()

	first := NewConn("alice")
	second := NewConn("alice")

	reg.Register(first)
	reg.Register(second)

	got, ok := reg.Lookup("alice")
	if !ok || got != second {
		t.Fatalf("expected the newer connection to win")
	}

	// A stale disconnect for the superseded handle must not erase the
	// newer mapping.
	reg.Unregister(first)
	got, ok = reg.Lookup("alice")
	if !ok || got != second {
		t.Fatalf("stale unregister removed the newer connection")
	}

	reg.Unregister(second)
	if _, ok := reg.Lookup("alice"); ok {
		t.Fatalf("expected alice to be offline after unregister")
	}
}

func TestRegistryBroadcastsOnlineListOnEveryChange(t *testing.T) {
	reg := NewRegistry()

	alice := NewConn("alice")
	reg.Register(alice)
	assertOnlineList(t, alice, []string{"alice"})

	bob := NewConn("bob")
	reg.Register(bob)
	assertOnlineList(t, alice, []string{"alice", "bob"})
	assertOnlineList(t, bob, []string{"alice", "bob"})

	reg.Unregister(bob)
	assertOnlineList(t, alice, []string{"alice"})

	// Exactly one broadcast per change: nothing else should be queued.
	select {
	case ev := <-alice.Events():
		t.Fatalf("unexpected extra event %q", ev.Name)
	default:
	}
}

func assertOnlineList(t *testing.T, conn *Conn, want []string) {
	t.Helper()

	select {
	case ev := <-conn.Events():
		if ev.Name != EventOnlineUsers {
			t.Fatalf("expected %s event, got %s", EventOnlineUsers, ev.Name)
		}
		ids, ok := ev.Data.([]string)
		if !ok {
			t.Fatalf("unexpected online list payload %T", ev.Data)
		}
		if !reflect.DeepEqual(ids, want) {
			t.Fatalf("expected online ids %v, got %v", want, ids)
		}
	default:
		t.Fatalf("expected a queued %s event", EventOnlineUsers)
	}
}
