package core

// Ephemeral event names delivered over live connections.
const (
	// EventOnlineUsers carries the full list of online user ids.
	// Broadcast to every connection on any register/unregister.
	EventOnlineUsers = "online_users"

	// Direct chat UI signals, delivered to a single user.
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"

	// Group chat UI signals, delivered to a room excluding the sender.
	EventGroupTyping     = "group_typing"
	EventGroupStopTyping = "group_stop_typing"

	// EventChatCleared notifies the peer after a direct soft-delete completes.
	EventChatCleared = "chat_cleared"
	// EventGroupChatCleared notifies the room after a group bulk-delete completes.
	EventGroupChatCleared = "group_chat_cleared"

	// EventNewMessage delivers a freshly persisted message record.
	EventNewMessage = "new_message"

	// Call signaling events, delivered to a single user.
	EventCallOffer    = "call_offer"
	EventCallAnswer   = "call_answer"
	EventCallDeclined = "call_declined"
	EventCallEnded    = "call_ended"
)

// Event is a named ephemeral notification with an opaque payload.
// The relay performs no validation of the payload shape.
type Event struct {
	Name string
	Data any
}
