package groups

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/media"
	"github.com/beamchat/beamchat-server/internal/proto"
	"github.com/beamchat/beamchat-server/internal/store"
)

// Notifier relays ephemeral events to live connections and group rooms.
type Notifier interface {
	ToUser(userID string, ev core.Event) bool
	ToRoomExceptUser(roomID, userID string, ev core.Event)
}

// Service manages the group lifecycle: creation, messaging, clearing,
// membership mutation and admin transfer.
type Service struct {
	store    store.Store
	relay    Notifier
	uploader media.Uploader

	// locks serializes membership mutation per group id so two concurrent
	// leaves cannot both compute the next admin from a stale member list.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a new group service.
func New(st store.Store, relay Notifier, uploader media.Uploader) *Service {
	return &Service{
		store:    st,
		relay:    relay,
		uploader: uploader,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockGroup(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Create persists a new group. The admin is always added to the member set
// even if omitted from the input.
func (s *Service) Create(ctx context.Context, name, adminID string, memberIDs []string, image string) (*store.Group, error) {
	if name == "" {
		return nil, core.InvalidArgument("group name is required")
	}
	if _, err := s.store.GetUserByID(ctx, adminID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("user not found")
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	members := make([]string, 0, len(memberIDs)+1)
	for _, id := range memberIDs {
		if id == "" || slices.Contains(members, id) {
			continue
		}
		members = append(members, id)
	}
	if !slices.Contains(members, adminID) {
		members = append(members, adminID)
	}

	imageURL, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	group := &store.Group{
		ID:        uuid.NewString(),
		Name:      name,
		AdminID:   adminID,
		MemberIDs: members,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// Group returns a single group; only members may fetch it.
func (s *Service) Group(ctx context.Context, groupID, requesterID string) (*store.Group, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(group.MemberIDs, requesterID) {
		return nil, core.Forbidden("not a group member")
	}
	return group, nil
}

// ListForUser lists the groups the user belongs to.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*store.Group, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// SendMessage persists a group message and relays it to the room excluding
// the sender. The sender must be a current member, and the message must
// carry text or an image.
func (s *Service) SendMessage(ctx context.Context, groupID, senderID, text, image string) (*store.GroupMessage, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(group.MemberIDs, senderID) {
		return nil, core.Forbidden("not a group member")
	}
	if text == "" && image == "" {
		return nil, core.InvalidArgument("message text or image is required")
	}

	imageURL, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	msg := &store.GroupMessage{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		SenderID:  senderID,
		Text:      text,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveGroupMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save group message: %w", err)
	}

	s.relay.ToRoomExceptUser(groupID, senderID, core.Event{
		Name: core.EventNewMessage,
		Data: proto.GroupMessageEvent{
			ID:        msg.ID,
			GroupID:   msg.GroupID,
			SenderID:  msg.SenderID,
			Text:      msg.Text,
			Image:     msg.ImageURL,
			CreatedAt: msg.CreatedAt.Unix(),
		},
	})

	return msg, nil
}

// Messages returns all messages for a group, oldest first. Members only.
func (s *Service) Messages(ctx context.Context, groupID, requesterID string) ([]*store.GroupMessage, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(group.MemberIDs, requesterID) {
		return nil, core.Forbidden("not a group member")
	}

	msgs, err := s.store.ListGroupMessages(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group messages: %w", err)
	}
	return msgs, nil
}

// Clear hard-deletes every message in the group and notifies the room.
// Admin only; group history has no per-user soft delete.
func (s *Service) Clear(ctx context.Context, groupID, requesterID string) error {
	unlock := s.lockGroup(groupID)
	defer unlock()

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.AdminID != requesterID {
		return core.Forbidden("only the group admin can clear the chat")
	}

	if err := s.store.DeleteGroupMessages(ctx, groupID); err != nil {
		return fmt.Errorf("delete group messages: %w", err)
	}

	s.relay.ToRoomExceptUser(groupID, requesterID, core.Event{
		Name: core.EventGroupChatCleared,
		Data: proto.GroupChatClearedEvent{GroupID: groupID, SenderID: requesterID},
	})
	return nil
}

// Leave removes the requester from the member set. The last member leaving
// deletes the group; when the admin leaves with members remaining, the
// admin role transfers to the earliest remaining member.
func (s *Service) Leave(ctx context.Context, groupID, requesterID string) error {
	unlock := s.lockGroup(groupID)
	defer unlock()

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !slices.Contains(group.MemberIDs, requesterID) {
		return core.InvalidArgument("not a member of this group")
	}

	remaining := make([]string, 0, len(group.MemberIDs)-1)
	for _, id := range group.MemberIDs {
		if id != requesterID {
			remaining = append(remaining, id)
		}
	}

	if len(remaining) == 0 {
		if err := s.store.DeleteGroupMessages(ctx, groupID); err != nil {
			return fmt.Errorf("delete group messages: %w", err)
		}
		if err := s.store.DeleteGroup(ctx, groupID); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		return nil
	}

	adminID := group.AdminID
	if adminID == requesterID {
		adminID = remaining[0]
	}
	if err := s.store.SetGroupMembers(ctx, groupID, adminID, remaining); err != nil {
		return fmt.Errorf("update members: %w", err)
	}
	return nil
}

func (s *Service) getGroup(ctx context.Context, id string) (*store.Group, error) {
	group, err := s.store.GetGroupByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("group not found")
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

func (s *Service) uploadImage(ctx context.Context, image string) (string, error) {
	if image == "" {
		return "", nil
	}
	data, contentType, err := media.ParseDataURL(image)
	if err != nil {
		return "", core.InvalidArgument("invalid image payload")
	}
	url, err := s.uploader.UploadImage(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return url, nil
}
