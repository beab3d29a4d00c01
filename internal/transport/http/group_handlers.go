package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/beamchat/beamchat-server/internal/service/groups"
)

// GroupHandlers provides HTTP handlers for group endpoints.
type GroupHandlers struct {
	groups *groups.Service
	log    *zerolog.Logger
}

// NewGroupHandlers creates a new group handlers instance.
func NewGroupHandlers(svc *groups.Service, logger *zerolog.Logger) *GroupHandlers {
	return &GroupHandlers{groups: svc, log: logger}
}

// CreateGroupRequest carries the new group's definition. Image is a data URL.
type CreateGroupRequest struct {
	Name      string   `json:"name" binding:"required"`
	MemberIDs []string `json:"member_ids"`
	Image     string   `json:"image"`
}

// Create persists a new group with the requester as admin.
// POST /api/groups
func (h *GroupHandlers) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	group, err := h.groups.Create(c.Request.Context(), req.Name, requesterID(c), req.MemberIDs, req.Image)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info().Str("group_id", group.ID).Str("admin_id", group.AdminID).Msg("group created")
	c.JSON(http.StatusCreated, groupResponse(group))
}

// List returns the requester's groups.
// GET /api/groups
func (h *GroupHandlers) List(c *gin.Context) {
	list, err := h.groups.ListForUser(c.Request.Context(), requesterID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	out := make([]GroupResponse, 0, len(list))
	for _, g := range list {
		out = append(out, groupResponse(g))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one group. Members only.
// GET /api/groups/:id
func (h *GroupHandlers) Get(c *gin.Context) {
	group, err := h.groups.Group(c.Request.Context(), c.Param("id"), requesterID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, groupResponse(group))
}

// Messages returns a group's history, oldest first. Members only.
// GET /api/groups/:id/messages
func (h *GroupHandlers) Messages(c *gin.Context) {
	msgs, err := h.groups.Messages(c.Request.Context(), c.Param("id"), requesterID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	out := make([]GroupMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, groupMessageResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

// SendMessage persists a group message and relays it to the room.
// POST /api/groups/:id/messages
func (h *GroupHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.groups.SendMessage(c.Request.Context(), c.Param("id"), requesterID(c), req.Text, req.Image)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, groupMessageResponse(msg))
}

// Clear hard-deletes the group's history. Admin only.
// POST /api/groups/:id/clear
func (h *GroupHandlers) Clear(c *gin.Context) {
	if err := h.groups.Clear(c.Request.Context(), c.Param("id"), requesterID(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "group chat cleared"})
}

// Leave removes the requester from the group.
// POST /api/groups/:id/leave
func (h *GroupHandlers) Leave(c *gin.Context) {
	if err := h.groups.Leave(c.Request.Context(), c.Param("id"), requesterID(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left group"})
}
