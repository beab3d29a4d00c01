package users

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/media"
	"github.com/beamchat/beamchat-server/internal/store"
)

// Service provides user blocking, contact listing and profile updates.
type Service struct {
	store    store.UserStore
	uploader media.Uploader
}

// New creates a new user service.
func New(st store.UserStore, uploader media.Uploader) *Service {
	return &Service{store: st, uploader: uploader}
}

// UpdateProfilePic uploads the image given as a data URL and stores the
// resulting URL on the user's profile.
func (s *Service) UpdateProfilePic(ctx context.Context, userID, image string) (*store.User, error) {
	if image == "" {
		return nil, core.InvalidArgument("profile picture is required")
	}
	data, contentType, err := media.ParseDataURL(image)
	if err != nil {
		return nil, core.InvalidArgument("invalid image payload")
	}
	url, err := s.uploader.UploadImage(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	if err := s.store.UpdateProfilePic(ctx, userID, url); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("user not found")
		}
		return nil, fmt.Errorf("update profile pic: %w", err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Block records that userID blocked targetID. Blocking is stored on the
// blocker's side only; send enforcement is symmetric at the message layer.
func (s *Service) Block(ctx context.Context, userID, targetID string) error {
	if targetID == "" {
		return core.InvalidArgument("user id is required")
	}
	if userID == targetID {
		return core.InvalidArgument("cannot block yourself")
	}

	if _, err := s.store.GetUserByID(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("user not found")
		}
		return fmt.Errorf("get target user: %w", err)
	}

	me, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}
	if slices.Contains(me.BlockedIDs, targetID) {
		return core.Conflict("user is already blocked")
	}

	if err := s.store.AddBlocked(ctx, userID, targetID); err != nil {
		return fmt.Errorf("add block: %w", err)
	}
	return nil
}

// Unblock removes a block entry. Unblocking a user that was never blocked
// is a no-op.
func (s *Service) Unblock(ctx context.Context, userID, targetID string) error {
	if targetID == "" {
		return core.InvalidArgument("user id is required")
	}
	if err := s.store.RemoveBlocked(ctx, userID, targetID); err != nil {
		return fmt.Errorf("remove block: %w", err)
	}
	return nil
}

// Blocked returns the users that userID has blocked.
func (s *Service) Blocked(ctx context.Context, userID string) ([]*store.User, error) {
	users, err := s.store.ListBlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list blocked: %w", err)
	}
	return users, nil
}

// Contacts lists every other user except the ones the requester blocked,
// for the chat sidebar.
func (s *Service) Contacts(ctx context.Context, userID string) ([]*store.User, error) {
	me, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	users, err := s.store.ListUsersExcept(ctx, userID, me.BlockedIDs)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
