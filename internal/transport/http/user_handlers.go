package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/beamchat/beamchat-server/internal/service/users"
)

// UserHandlers provides HTTP handlers for user endpoints.
type UserHandlers struct {
	users *users.Service
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(svc *users.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{users: svc, log: logger}
}

// UpdateProfileRequest carries a profile picture as a data URL.
type UpdateProfileRequest struct {
	ProfilePic string `json:"profile_pic" binding:"required"`
}

// Contacts lists every other user for the chat sidebar, excluding blocked
// users.
// GET /api/users/contacts
func (h *UserHandlers) Contacts(c *gin.Context) {
	contacts, err := h.users.Contacts(c.Request.Context(), requesterID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, userResponses(contacts))
}

// Blocked lists the users the requester has blocked.
// GET /api/users/blocked
func (h *UserHandlers) Blocked(c *gin.Context) {
	blocked, err := h.users.Blocked(c.Request.Context(), requesterID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, userResponses(blocked))
}

// Block records a block against the target user.
// POST /api/users/block/:id
func (h *UserHandlers) Block(c *gin.Context) {
	if err := h.users.Block(c.Request.Context(), requesterID(c), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user blocked"})
}

// Unblock removes a block. Idempotent.
// POST /api/users/unblock/:id
func (h *UserHandlers) Unblock(c *gin.Context) {
	if err := h.users.Unblock(c.Request.Context(), requesterID(c), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user unblocked"})
}

// UpdateProfile uploads a new profile picture and stores its URL.
// PUT /api/auth/update-profile
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.users.UpdateProfilePic(c.Request.Context(), requesterID(c), req.ProfilePic)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}
