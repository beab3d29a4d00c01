package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// User represents a registered user. BlockedIDs holds only the ids this
// user has blocked; blocking is enforced symmetrically at the service layer
// but stored asymmetrically.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	ProfilePic   string
	BlockedIDs   []string
	CreatedAt    time.Time
}

// Message is a persisted direct message. DeletedFor is a per-user
// soft-delete marker: the message stays visible to everyone else.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Text       string
	ImageURL   string
	DeletedFor []string
	CreatedAt  time.Time
}

// Group is a group conversation. MemberIDs is ordered; the admin is always
// a member.
type Group struct {
	ID        string
	Name      string
	AdminID   string
	MemberIDs []string
	ImageURL  string
	CreatedAt time.Time
}

// GroupMessage is a persisted group message. There is no per-message
// soft-delete: clearing a group chat removes all of its messages.
type GroupMessage struct {
	ID        string
	GroupID   string
	SenderID  string
	Text      string
	ImageURL  string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser persists a new user.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by id, including its blocked-id list.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateProfilePic replaces the user's profile picture URL.
	UpdateProfilePic(ctx context.Context, id, url string) error

	// ListUsersExcept lists all users other than userID and any id in
	// excludeIDs, ordered by full name.
	ListUsersExcept(ctx context.Context, userID string, excludeIDs []string) ([]*User, error)

	// AddBlocked records that userID blocked targetID. Adding an existing
	// entry is a no-op.
	AddBlocked(ctx context.Context, userID, targetID string) error

	// RemoveBlocked removes a block entry. Removing a missing entry is a
	// no-op.
	RemoveBlocked(ctx context.Context, userID, targetID string) error

	// ListBlocked returns the users that userID has blocked.
	ListBlocked(ctx context.Context, userID string) ([]*User, error)
}

// MessageStore handles direct message persistence.
type MessageStore interface {
	// SaveMessage persists a direct message.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListConversation returns all messages between two users that the
	// viewer has not soft-deleted, ordered by creation time ascending.
	ListConversation(ctx context.Context, userA, userB, viewerID string) ([]*Message, error)

	// MarkConversationDeleted adds viewerID to the deletedFor set of every
	// message between the two users. Idempotent: already-marked messages
	// are left unchanged.
	MarkConversationDeleted(ctx context.Context, userA, userB, viewerID string) error
}

// GroupStore handles group and group message persistence.
type GroupStore interface {
	// CreateGroup persists a new group with its ordered member list.
	CreateGroup(ctx context.Context, group *Group) error

	// GetGroupByID retrieves a group and its members in order.
	GetGroupByID(ctx context.Context, id string) (*Group, error)

	// ListGroupsForUser lists the groups the user is a member of.
	ListGroupsForUser(ctx context.Context, userID string) ([]*Group, error)

	// SetGroupMembers rewrites the group's admin and ordered member list.
	SetGroupMembers(ctx context.Context, groupID, adminID string, memberIDs []string) error

	// DeleteGroup removes the group and its membership records.
	DeleteGroup(ctx context.Context, id string) error

	// SaveGroupMessage persists a group message.
	SaveGroupMessage(ctx context.Context, msg *GroupMessage) error

	// ListGroupMessages returns all messages for a group ordered by
	// creation time ascending.
	ListGroupMessages(ctx context.Context, groupID string) ([]*GroupMessage, error)

	// DeleteGroupMessages removes every message for a group.
	DeleteGroupMessages(ctx context.Context, groupID string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	GroupStore

	// Close closes the underlying database connection.
	Close() error
}
