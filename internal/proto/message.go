package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeTyping          = "typing"
	InboundTypeStopTyping      = "stop_typing"
	InboundTypeGroupTyping     = "group_typing"
	InboundTypeGroupStopTyping = "group_stop_typing"
	InboundTypeJoinGroup       = "join_group"
	InboundTypeCallOffer       = "call_offer"
	InboundTypeCallAnswer      = "call_answer"
	InboundTypeCallDeclined    = "call_declined"
	InboundTypeCallEnded       = "call_ended"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// TypingData targets a direct-chat peer.
type TypingData struct {
	RecipientID string `json:"recipient_id"`
}

// GroupTypingData targets a group room.
type GroupTypingData struct {
	GroupID string `json:"group_id"`
}

// JoinGroupData subscribes the connection to a group room, e.g. right
// after the user created or was added to a group.
type JoinGroupData struct {
	GroupID string `json:"group_id"`
}

// CallOfferData initiates a call attempt toward another user.
type CallOfferData struct {
	To     string          `json:"to"`
	Signal json.RawMessage `json:"signal"`
	Name   string          `json:"name,omitempty"`
	Avatar string          `json:"avatar,omitempty"`
}

// CallAnswerData accepts a ringing call.
type CallAnswerData struct {
	To     string          `json:"to"`
	Signal json.RawMessage `json:"signal"`
}

// CallHangupData declines or ends a call attempt.
type CallHangupData struct {
	To string `json:"to"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// TypingEvent notifies a user that a peer is typing.
type TypingEvent struct {
	SenderID string `json:"sender_id"`
}

// GroupTypingEvent notifies room members that a member is typing.
type GroupTypingEvent struct {
	GroupID  string `json:"group_id"`
	SenderID string `json:"sender_id"`
}

// ChatClearedEvent notifies the peer that a direct chat was cleared.
type ChatClearedEvent struct {
	UserID string `json:"user_id"`
}

// GroupChatClearedEvent notifies room members that the group chat was
// cleared by its admin.
type GroupChatClearedEvent struct {
	GroupID  string `json:"group_id"`
	SenderID string `json:"sender_id"`
}

// MessageEvent delivers a persisted direct message.
type MessageEvent struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text,omitempty"`
	Image      string `json:"image,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// GroupMessageEvent delivers a persisted group message.
type GroupMessageEvent struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text,omitempty"`
	Image     string `json:"image,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// CallOfferEvent notifies the target of an incoming call.
type CallOfferEvent struct {
	From   string          `json:"from"`
	Signal json.RawMessage `json:"signal"`
	Name   string          `json:"name,omitempty"`
	Avatar string          `json:"avatar,omitempty"`
}

// CallHangupEvent notifies a party that the call was declined or ended.
type CallHangupEvent struct {
	From string `json:"from"`
}

// CallAnswerEvent notifies the caller that the call was accepted.
type CallAnswerEvent struct {
	From   string          `json:"from"`
	Signal json.RawMessage `json:"signal"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
