package core

// DefaultLobbyLimit caps ListOpenRooms when the caller passes no limit.
const DefaultLobbyLimit = 5

// LobbyEntry is a joinable room as shown to players looking for a game.
type LobbyEntry struct {
	RoomID  string
	Members int
}

// Lobby derives the joinable rooms from the store on every call. Nothing is cached.
type Lobby struct {
	rooms        RoomStore
	defaultLimit int
}

// NewLobby builds a lobby over rooms.
func NewLobby(rooms RoomStore, defaultLimit int) *Lobby {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLobbyLimit
	}
	return &Lobby{rooms: rooms, defaultLimit: defaultLimit}
}

// ListOpenRooms returns at most limit non-empty, non-full Open rooms, oldest first.
func (l *Lobby) ListOpenRooms(limit int) []LobbyEntry {
	if limit <= 0 {
		limit = l.defaultLimit
	}
	out := make([]LobbyEntry, 0, limit)
	for _, s := range l.rooms.Summaries() {
		if !s.Listed() {
			continue
		}
		out = append(out, LobbyEntry{RoomID: s.ID, Members: s.Members})
		if len(out) == limit {
			break
		}
	}
	return out
}

// CountOpen returns the number of rooms the lobby would list without a limit.
func (l *Lobby) CountOpen() int {
	n := 0
	for _, s := range l.rooms.Summaries() {
		if s.Listed() {
			n++
		}
	}
	return n
}
