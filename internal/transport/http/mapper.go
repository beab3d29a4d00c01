package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	ProfilePic string `json:"profile_pic,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// MessageResponse is the public view of a direct message.
type MessageResponse struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text,omitempty"`
	Image      string `json:"image,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// GroupResponse is the public view of a group.
type GroupResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	AdminID   string   `json:"admin_id"`
	MemberIDs []string `json:"member_ids"`
	Image     string   `json:"image,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// GroupMessageResponse is the public view of a group message.
type GroupMessageResponse struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text,omitempty"`
	Image     string `json:"image,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		CreatedAt:  u.CreatedAt.Unix(),
	}
}

func userResponses(users []*store.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return out
}

func messageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Image:      m.ImageURL,
		CreatedAt:  m.CreatedAt.Unix(),
	}
}

func groupResponse(g *store.Group) GroupResponse {
	return GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		AdminID:   g.AdminID,
		MemberIDs: g.MemberIDs,
		Image:     g.ImageURL,
		CreatedAt: g.CreatedAt.Unix(),
	}
}

func groupMessageResponse(m *store.GroupMessage) GroupMessageResponse {
	return GroupMessageResponse{
		ID:        m.ID,
		GroupID:   m.GroupID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		Image:     m.ImageURL,
		CreatedAt: m.CreatedAt.Unix(),
	}
}

// writeError translates a service error into an HTTP response. Unknown
// errors are logged and surfaced as 500.
func writeError(c *gin.Context, logger *zerolog.Logger, err error) {
	var domainErr *core.Error
	if errors.As(err, &domainErr) {
		c.JSON(statusForCode(domainErr.Code), ErrorResponse{Error: domainErr.Message})
		return
	}

	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func statusForCode(code string) int {
	switch code {
	case core.CodeInvalidArgument:
		return http.StatusBadRequest
	case core.CodeNotFound:
		return http.StatusNotFound
	case core.CodeForbidden:
		return http.StatusForbidden
	case core.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
