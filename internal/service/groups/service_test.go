package groups

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
	target string // user id or room id
	ev     core.Event
}

type fakeRelay struct {
	toUser []relayed
	toRoom []relayed
}

func (f *fakeRelay) ToUser(userID string, ev core.Event) bool {
	f.toUser = append(f.toUser, relayed{target: userID, ev: ev})
	return true
}

func (f *fakeRelay) ToRoomExceptUser(roomID, _ string, ev core.Event) {
	f.toRoom = append(f.toRoom, relayed{target: roomID, ev: ev})
}

func newTestService(t *testing.T) (*Service, *fakeRelay, store.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	relay := &fakeRelay{}
	return New(st, relay, media.Disabled{}), relay, st
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

func TestCreateAlwaysIncludesAdmin(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	group, err := svc.Create(ctx, "pals", alice.ID, []string{bob.ID}, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if group.AdminID != alice.ID {
		t.Fatalf("expected alice as admin, got %s", group.AdminID)
	}
	if len(group.MemberIDs) != 2 {
		t.Fatalf("expected 2 members, got %v", group.MemberIDs)
	}

	// Admin listed explicitly is not duplicated.
	group2, err := svc.Create(ctx, "pals2", alice.ID, []string{alice.ID, bob.ID}, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(group2.MemberIDs) != 2 || group2.MemberIDs[0] != alice.ID {
		t.Fatalf("unexpected members: %v", group2.MemberIDs)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")

	_, err := svc.Create(ctx, "", alice.ID, nil, "")
	assertCode(t, err, core.CodeInvalidArgument)

	_, err = svc.Create(ctx, "ghost-admin", "nobody", nil, "")
	assertCode(t, err, core.CodeNotFound)
}

func TestSendMessageRules(t *testing.T) {
	svc, relay, st := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")
	carol := seedUser(t, st, "carol")

	group, err := svc.Create(ctx, "pals", alice.ID, []string{bob.ID}, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.SendMessage(ctx, "missing-group", alice.ID, "hi", "")
	assertCode(t, err, core.CodeNotFound)

	_, err = svc.SendMessage(ctx, group.ID, carol.ID, "hi", "")
	assertCode(t, err, core.CodeForbidden)

	_, err = svc.SendMessage(ctx, group.ID, alice.ID, "", "")
	assertCode(t, err, core.CodeInvalidArgument)

	msg, err := svc.SendMessage(ctx, group.ID, alice.ID, "hi all", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.GroupID != group.ID {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(relay.toRoom) != 1 || relay.toRoom[0].target != group.ID {
		t.Fatalf("expected one room relay, got %+v", relay.toRoom)
	}
	if relay.toRoom[0].ev.Name != core.EventNewMessage {
		t.Fatalf("expected new_message, got %s", relay.toRoom[0].ev.Name)
	}
}

func TestMessagesRequireMembership(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")
	carol := seedUser(t, st, "carol")

	group, err := svc.Create(ctx, "pals", alice.ID, nil, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.Messages(ctx, group.ID, carol.ID)
	assertCode(t, err, core.CodeForbidden)

	if _, err := svc.SendMessage(ctx, group.ID, alice.ID, "one", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	msgs, err := svc.Messages(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "one" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestClearIsAdminOnly(t *testing.T) {
	svc, relay, st := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	group, err := svc.Create(ctx, "pals", alice.ID, []string{bob.ID}, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.SendMessage(ctx, group.ID, bob.ID, "hello", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	err = svc.Clear(ctx, group.ID, bob.ID)
	assertCode(t, err, core.CodeForbidden)

	if err := svc.Clear(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	msgs, err := svc.Messages(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages after clear, got %d", len(msgs))
	}

	var cleared bool
	for _, r := range relay.toRoom {
		if r.ev.Name == core.EventGroupChatCleared && r.target == group.ID {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected group_chat_cleared relay, got %+v", relay.toRoom)
	}
}

func TestLeaveTransfersAdminThenDeletesGroup(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")
	carol := seedUser(t, st, "carol")

	group, err := svc.Create(ctx, "trio", alice.ID, []string{bob.ID, carol.ID}, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = svc.Leave(ctx, group.ID, "stranger")
	assertCode(t, err, core.CodeInvalidArgument)

	// Non-admin leave keeps the admin.
	if err := svc.Leave(ctx, group.ID, carol.ID); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	got, err := svc.Group(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AdminID != alice.ID || len(got.MemberIDs) != 2 {
		t.Fatalf("unexpected group state: %+v", got)
	}

	// Admin leave transfers the role to the earliest remaining member.
	if err := svc.Leave(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	got, err = svc.Group(ctx, group.ID, bob.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AdminID != bob.ID {
		t.Fatalf("expected bob as new admin, got %s", got.AdminID)
	}
	if len(got.MemberIDs) != 1 || got.MemberIDs[0] != bob.ID {
		t.Fatalf("unexpected members: %v", got.MemberIDs)
	}

	// Last member leaving deletes the group.
	if err := svc.Leave(ctx, group.ID, bob.ID); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	_, err = svc.Group(ctx, group.ID, bob.ID)
	assertCode(t, err, core.CodeNotFound)
}

func TestLeaveScenarioAdminStaysUntilLast(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	group, err := svc.Create(ctx, "duo", alice.ID, []string{alice.ID, bob.ID}, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Leave(ctx, group.ID, bob.ID); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	got, err := svc.Group(ctx, group.ID, alice.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AdminID != alice.ID || len(got.MemberIDs) != 1 || got.MemberIDs[0] != alice.ID {
		t.Fatalf("unexpected group state: %+v", got)
	}

	if err := svc.Leave(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	_, err = svc.Group(ctx, group.ID, alice.ID)
	assertCode(t, err, core.CodeNotFound)
}
