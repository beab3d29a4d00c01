package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/beamchat/beamchat-server/internal/store"
)

// schema is applied on startup. CREATE TABLE IF NOT EXISTS keeps restarts
// cheap without a migration tool.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	full_name     TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	profile_pic   TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS blocked_users (
	user_id    TEXT NOT NULL,
	blocked_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, blocked_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (blocked_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	sender_id   TEXT NOT NULL,
	receiver_id TEXT NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	image_url   TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (receiver_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_pair
	ON messages (sender_id, receiver_id, created_at);

CREATE TABLE IF NOT EXISTS message_deletions (
	message_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	PRIMARY KEY (message_id, user_id),
	FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS chat_groups (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	admin_id   TEXT NOT NULL,
	image_url  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (admin_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id TEXT NOT NULL,
	user_id  TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (group_id, user_id),
	FOREIGN KEY (group_id) REFERENCES chat_groups(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS group_messages (
	id         TEXT PRIMARY KEY,
	group_id   TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	text       TEXT NOT NULL DEFAULT '',
	image_url  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY (group_id) REFERENCES chat_groups(id),
	FOREIGN KEY (sender_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_group_messages_group
	ON group_messages (group_id, created_at);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser persists a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	query := `
		INSERT INTO users (id, full_name, email, password_hash, profile_pic, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.FullName, user.Email, user.PasswordHash, user.ProfilePic, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by id, including its blocked-id list.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*store.User, error) {
	query := fmt.Sprintf(`
		SELECT id, full_name, email, password_hash, profile_pic, created_at
		FROM users
		WHERE %s = ?
	`, column)

	var user store.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.ProfilePic,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	blocked, err := s.listBlockedIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.BlockedIDs = blocked

	return &user, nil
}

func (s *SQLiteStore) listBlockedIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT blocked_id FROM blocked_users WHERE user_id = ? ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query blocked ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blocked id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateProfilePic replaces the user's profile picture URL.
func (s *SQLiteStore) UpdateProfilePic(ctx context.Context, id, url string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET profile_pic = ? WHERE id = ?`, url, id)
	if err != nil {
		return fmt.Errorf("update profile pic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListUsersExcept lists all users other than userID and any id in
// excludeIDs, ordered by full name.
func (s *SQLiteStore) ListUsersExcept(ctx context.Context, userID string, excludeIDs []string) ([]*store.User, error) {
	skip := make(map[string]struct{}, len(excludeIDs)+1)
	skip[userID] = struct{}{}
	for _, id := range excludeIDs {
		skip[id] = struct{}{}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, email, profile_pic, created_at
		FROM users
		ORDER BY full_name
	`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.FullName, &user.Email, &user.ProfilePic, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if _, excluded := skip[user.ID]; excluded {
			continue
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// AddBlocked records that userID blocked targetID.
func (s *SQLiteStore) AddBlocked(ctx context.Context, userID, targetID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blocked_users (user_id, blocked_id) VALUES (?, ?)
	`, userID, targetID)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

// RemoveBlocked removes a block entry.
func (s *SQLiteStore) RemoveBlocked(ctx context.Context, userID, targetID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM blocked_users WHERE user_id = ? AND blocked_id = ?
	`, userID, targetID)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

// ListBlocked returns the users that userID has blocked.
func (s *SQLiteStore) ListBlocked(ctx context.Context, userID string) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.full_name, u.email, u.profile_pic, u.created_at
		FROM blocked_users b
		JOIN users u ON u.id = b.blocked_id
		WHERE b.user_id = ?
		ORDER BY b.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query blocked users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.FullName, &user.Email, &user.ProfilePic, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blocked user: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a direct message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, text, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.ImageURL, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListConversation returns all messages between two users that the viewer
// has not soft-deleted, ordered by creation time ascending.
func (s *SQLiteStore) ListConversation(ctx context.Context, userA, userB, viewerID string) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, text, image_url, created_at
		FROM messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		  AND id NOT IN (SELECT message_id FROM message_deletions WHERE user_id = ?)
		ORDER BY created_at, rowid
	`, userA, userB, userB, userA, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Text, &msg.ImageURL, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// MarkConversationDeleted adds viewerID to the deletedFor set of every
// message between the two users. INSERT OR IGNORE makes it idempotent.
func (s *SQLiteStore) MarkConversationDeleted(ctx context.Context, userA, userB, viewerID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_deletions (message_id, user_id)
		SELECT id, ? FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
	`, viewerID, userA, userB, userB, userA)
	if err != nil {
		return fmt.Errorf("mark conversation deleted: %w", err)
	}
	return nil
}

// ==== GroupStore implementation ====

// CreateGroup persists a new group with its ordered member list.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *store.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_groups (id, name, admin_id, image_url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, group.ID, group.Name, group.AdminID, group.ImageURL, group.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group.ID, group.MemberIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func insertMembers(ctx context.Context, tx *sql.Tx, groupID string, memberIDs []string) error {
	for i, userID := range memberIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO group_members (group_id, user_id, position) VALUES (?, ?, ?)
		`, groupID, userID, i)
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	return nil
}

// GetGroupByID retrieves a group and its members in order.
func (s *SQLiteStore) GetGroupByID(ctx context.Context, id string) (*store.Group, error) {
	var group store.Group
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, admin_id, image_url, created_at
		FROM chat_groups WHERE id = ?
	`, id).Scan(&group.ID, &group.Name, &group.AdminID, &group.ImageURL, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query group: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM group_members WHERE group_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		group.MemberIDs = append(group.MemberIDs, userID)
	}
	return &group, rows.Err()
}

// ListGroupsForUser lists the groups the user is a member of.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*store.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id
		FROM chat_groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user groups: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	groups := make([]*store.Group, 0, len(ids))
	for _, id := range ids {
		group, err := s.GetGroupByID(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// SetGroupMembers rewrites the group's admin and ordered member list.
func (s *SQLiteStore) SetGroupMembers(ctx context.Context, groupID, adminID string, memberIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE chat_groups SET admin_id = ? WHERE id = ?
	`, adminID, groupID)
	if err != nil {
		return fmt.Errorf("update group admin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	if err := insertMembers(ctx, tx, groupID, memberIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteGroup removes the group and its membership records.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ?`, id); err != nil {
		return fmt.Errorf("delete members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_groups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	return tx.Commit()
}

// SaveGroupMessage persists a group message.
func (s *SQLiteStore) SaveGroupMessage(ctx context.Context, msg *store.GroupMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_messages (id, group_id, sender_id, text, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.GroupID, msg.SenderID, msg.Text, msg.ImageURL, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert group message: %w", err)
	}
	return nil
}

// ListGroupMessages returns all messages for a group ordered by creation
// time ascending.
func (s *SQLiteStore) ListGroupMessages(ctx context.Context, groupID string) ([]*store.GroupMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, sender_id, text, image_url, created_at
		FROM group_messages
		WHERE group_id = ?
		ORDER BY created_at, rowid
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.GroupMessage
	for rows.Next() {
		var msg store.GroupMessage
		if err := rows.Scan(&msg.ID, &msg.GroupID, &msg.SenderID, &msg.Text, &msg.ImageURL, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// DeleteGroupMessages removes every message for a group.
func (s *SQLiteStore) DeleteGroupMessages(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM group_messages WHERE group_id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("delete group messages: %w", err)
	}
	return nil
}
