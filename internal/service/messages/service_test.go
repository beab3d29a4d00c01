package messages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/media"
	"github.com/beamchat/beamchat-server/internal/store"
	"github.com/beamchat/beamchat-server/internal/store/sqlite"
)

type relayed struct {
	userID string
	ev     core.Event
}

type fakeRelay struct {
	events []relayed
	online map[string]bool
}

func (f *fakeRelay) ToUser(userID string, ev core.Event) bool {
	f.events = append(f.events, relayed{userID: userID, ev: ev})
	if f.online == nil {
		return true
	}
	return f.online[userID]
}

func newTestService(t *testing.T) (*Service, *store.User, *store.User, *fakeRelay, store.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	relay := &fakeRelay{}
	svc := New(st, relay, media.Disabled{})

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")
	return svc, alice, bob, relay, st
}

func seedUser(t *testing.T, st store.Store, name string) *store.User {
	t.Helper()

	user := &store.User{
		ID:        uuid.NewString(),
		FullName:  name,
		Email:     name + "@example.com",
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user %s: %v", name, err)
	}
	return user
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()

	var domainErr *core.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected domain error with code %s, got %v", code, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, domainErr.Code, domainErr.Message)
	}
}

func TestSendToUnknownUserFails(t *testing.T) {
	svc, alice, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, alice.ID, "nobody", "hi", "")
	assertCode(t, err, core.CodeNotFound)
}

func TestSendBlockedInEitherDirectionForbidden(t *testing.T) {
	svc, alice, bob, _, st := newTestService(t)
	ctx := context.Background()

	if err := st.AddBlocked(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	_, err := svc.Send(ctx, alice.ID, bob.ID, "hi", "")
	assertCode(t, err, core.CodeForbidden)

	_, err = svc.Send(ctx, bob.ID, alice.ID, "hi", "")
	assertCode(t, err, core.CodeForbidden)

	// Unblocking restores send capability in both directions.
	if err := st.RemoveBlocked(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("unblock failed: %v", err)
	}
	if _, err := svc.Send(ctx, alice.ID, bob.ID, "hi", ""); err != nil {
		t.Fatalf("expected send to succeed after unblock, got %v", err)
	}
	if _, err := svc.Send(ctx, bob.ID, alice.ID, "yo", ""); err != nil {
		t.Fatalf("expected send to succeed after unblock, got %v", err)
	}
}

func TestSendPersistsThenRelays(t *testing.T) {
	svc, alice, bob, relay, st := newTestService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, alice.ID, bob.ID, "hi", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if len(relay.events) != 1 || relay.events[0].userID != bob.ID {
		t.Fatalf("expected one relayed event to bob, got %+v", relay.events)
	}
	if relay.events[0].ev.Name != core.EventNewMessage {
		t.Fatalf("expected new_message event, got %s", relay.events[0].ev.Name)
	}

	saved, err := st.ListConversation(ctx, alice.ID, bob.ID, bob.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != msg.ID {
		t.Fatalf("expected the message to be persisted, got %+v", saved)
	}
}

func TestConversationHiddenWhenRequesterBlockedPeer(t *testing.T) {
	svc, alice, bob, _, st := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Send(ctx, alice.ID, bob.ID, "hi", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := st.AddBlocked(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	// The blocker's thread is hidden.
	_, err := svc.Conversation(ctx, alice.ID, bob.ID)
	assertCode(t, err, core.CodeForbidden)

	// Being blocked does not hide existing history from the peer.
	msgs, err := svc.Conversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("expected bob to read history, got %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
}

func TestBlockAndClearScenario(t *testing.T) {
	svc, alice, bob, _, st := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Send(ctx, alice.ID, bob.ID, "hi", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := svc.Send(ctx, bob.ID, alice.ID, "yo", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := st.AddBlocked(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("block failed: %v", err)
	}

	_, err := svc.Send(ctx, bob.ID, alice.ID, "again", "")
	assertCode(t, err, core.CodeForbidden)

	if err := svc.Clear(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	// Clearing twice yields the same state.
	if err := svc.Clear(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("repeated clear failed: %v", err)
	}

	// Alice's view is empty; read it through the store since she blocked bob.
	aliceView, err := st.ListConversation(ctx, alice.ID, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(aliceView) != 0 {
		t.Fatalf("expected empty view for alice, got %d messages", len(aliceView))
	}

	bobView, err := svc.Conversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("bob's read failed: %v", err)
	}
	if len(bobView) != 2 {
		t.Fatalf("expected bob to still see 2 messages, got %d", len(bobView))
	}
}

func TestClearNotifiesPeer(t *testing.T) {
	svc, alice, bob, relay, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Clear(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if len(relay.events) != 1 || relay.events[0].userID != bob.ID {
		t.Fatalf("expected one relayed event to bob, got %+v", relay.events)
	}
	if relay.events[0].ev.Name != core.EventChatCleared {
		t.Fatalf("expected chat_cleared event, got %s", relay.events[0].ev.Name)
	}
}
