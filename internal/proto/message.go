package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
// ID is echoed back on the matching reply or error.
type Inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypeListRooms    = "list_rooms"
	InboundTypeCreateRoom   = "create_room"
	InboundTypeJoinRoom     = "join_room"
	InboundTypeLeaveRoom    = "leave_room"
	InboundTypeToggleReady  = "toggle_ready"
	InboundTypeGetRoomState = "get_room_state"
	InboundTypeChat         = "chat"

	OutboundTypeReply = "reply"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventRoomState    = "room_state"
	EventLobbyChanged = "lobby_changed"
	EventGameStart    = "game_start"
	EventChatMessage  = "chat_message"

	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeInternal       = "internal"
)

// ListRoomsData asks for the open rooms. Limit <= 0 uses the server default.
type ListRoomsData struct {
	Limit int `json:"limit,omitempty"`
}

// CreateRoomData opens a new room.
type CreateRoomData struct {
	Name string `json:"name"`
}

// JoinRoomData joins a room by its code.
type JoinRoomData struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// RoomData names a room for leave and get_room_state.
type RoomData struct {
	Room string `json:"room"`
}

// ChatData is a chat message from the client.
type ChatData struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// LobbyEntry is one joinable room.
type LobbyEntry struct {
	Room    string `json:"room"`
	Members int    `json:"members"`
}

// RoomsReply answers list_rooms.
type RoomsReply struct {
	Rooms []LobbyEntry `json:"rooms"`
}

// RoomReply answers create_room and join_room.
type RoomReply struct {
	Room string `json:"room"`
}

// ReadyReply answers toggle_ready.
type ReadyReply struct {
	Ready bool `json:"ready"`
}

// Member is a room member as seen by one recipient. Connection IDs never leave the server.
type Member struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Self  bool   `json:"self,omitempty"`
}

// RoomState is the payload of room_state and game_start.
type RoomState struct {
	Room     string   `json:"room"`
	Phase    string   `json:"phase"`
	Capacity int      `json:"capacity"`
	Members  []Member `json:"members"`
}

// ChatMessage is the payload of chat_message.
type ChatMessage struct {
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
