package messages

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/media"
	"github.com/beamchat/beamchat-server/internal/proto"
	"github.com/beamchat/beamchat-server/internal/store"
)

// Notifier relays ephemeral events to live connections. Invoked
// synchronously after a persistence operation commits, so a delivered
// new_message always refers to a durably saved record.
type Notifier interface {
	ToUser(userID string, ev core.Event) bool
}

// Service guards direct-message sends and reads against blocking rules and
// applies per-user soft deletion.
type Service struct {
	store    store.Store
	relay    Notifier
	uploader media.Uploader
}

// New creates a new direct message service.
func New(st store.Store, relay Notifier, uploader media.Uploader) *Service {
	return &Service{store: st, relay: relay, uploader: uploader}
}

// Send persists a direct message and relays it to the receiver if online.
// Fails with forbidden when either side has blocked the other.
func (s *Service) Send(ctx context.Context, senderID, receiverID, text, image string) (*store.Message, error) {
	sender, err := s.getUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.getUser(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	if slices.Contains(sender.BlockedIDs, receiverID) {
		return nil, core.Forbidden("cannot send message to blocked user")
	}
	if slices.Contains(receiver.BlockedIDs, senderID) {
		return nil, core.Forbidden("this user has blocked you")
	}

	imageURL, err := s.uploadImage(ctx, image)
	if err != nil {
		return nil, err
	}

	msg := &store.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		ImageURL:   imageURL,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	s.relay.ToUser(receiverID, core.Event{
		Name: core.EventNewMessage,
		Data: proto.MessageEvent{
			ID:         msg.ID,
			SenderID:   msg.SenderID,
			ReceiverID: msg.ReceiverID,
			Text:       msg.Text,
			Image:      msg.ImageURL,
			CreatedAt:  msg.CreatedAt.Unix(),
		},
	})

	return msg, nil
}

// Conversation returns the requester's view of the chat with a peer: every
// message between them that the requester has not cleared. Reading a thread
// with a user the requester blocked is forbidden ("you blocked them, hide
// the thread"); being blocked by the peer does not hide existing history.
func (s *Service) Conversation(ctx context.Context, requesterID, peerID string) ([]*store.Message, error) {
	requester, err := s.getUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(requester.BlockedIDs, peerID) {
		return nil, core.Forbidden("cannot retrieve messages from blocked user")
	}

	msgs, err := s.store.ListConversation(ctx, requesterID, peerID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return msgs, nil
}

// Clear soft-deletes the chat with a peer for the requester only, then
// notifies the peer if online. Idempotent.
func (s *Service) Clear(ctx context.Context, requesterID, peerID string) error {
	if peerID == "" {
		return core.InvalidArgument("user id is required")
	}

	if err := s.store.MarkConversationDeleted(ctx, requesterID, peerID, requesterID); err != nil {
		return fmt.Errorf("mark conversation deleted: %w", err)
	}

	s.relay.ToUser(peerID, core.Event{
		Name: core.EventChatCleared,
		Data: proto.ChatClearedEvent{UserID: requesterID},
	})
	return nil
}

func (s *Service) getUser(ctx context.Context, id string) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
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
