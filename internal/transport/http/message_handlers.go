package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/beamchat/beamchat-server/internal/service/messages"
)

// MessageHandlers provides HTTP handlers for direct-message endpoints.
type MessageHandlers struct {
	messages *messages.Service
	log      *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *messages.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{messages: svc, log: logger}
}

// SendMessageRequest carries the message body. Image is a data URL.
type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// Conversation returns the requester's view of the chat with a peer.
// GET /api/messages/:id
func (h *MessageHandlers) Conversation(c *gin.Context) {
	msgs, err := h.messages.Conversation(c.Request.Context(), requesterID(c), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

// Send persists a direct message and relays it to the receiver.
// POST /api/messages/send/:id
func (h *MessageHandlers) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), requesterID(c), c.Param("id"), req.Text, req.Image)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse(msg))
}

// Clear soft-deletes the chat with a peer for the requester only.
// POST /api/messages/clear/:id
func (h *MessageHandlers) Clear(c *gin.Context) {
	if err := h.messages.Clear(c.Request.Context(), requesterID(c), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "chat cleared"})
}
