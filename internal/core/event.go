package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomState delivers a full room snapshot.
	EventRoomState EventKind = iota
	// EventLobbyChanged tells every connection the lobby listing may have changed.
	EventLobbyChanged
	// EventGameStart is sent once per room when all members are ready.
	EventGameStart
	// EventChatMessage notifies room members about a chat message.
	EventChatMessage
)

func (k EventKind) String() string {
	switch k {
	case EventRoomState:
		return "room_state"
	case EventLobbyChanged:
		return "lobby_changed"
	case EventGameStart:
		return "game_start"
	case EventChatMessage:
		return "chat_message"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
// Room and Chat point at immutable values shared between recipients.
type Event struct {
	Kind EventKind
	Room *Room        // EventRoomState, EventGameStart
	Chat *ChatMessage // EventChatMessage
}
