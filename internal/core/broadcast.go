package core

import "github.com/rs/zerolog"

// Broadcaster delivers events to connections. Delivery is best effort and never blocks;
// a full or closed recipient loses the event.
type Broadcaster struct {
	conns Registry
	log   *zerolog.Logger
}

// NewBroadcaster builds a broadcaster that resolves recipients through conns.
func NewBroadcaster(conns Registry, logger *zerolog.Logger) *Broadcaster {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broadcaster{conns: conns, log: logger}
}

// PublishRoomState sends the snapshot to every connection bound to the room.
func (b *Broadcaster) PublishRoomState(room Room) {
	b.publishRoom(room, &Event{Kind: EventRoomState, Room: &room})
}

// PublishGameStart sends the final snapshot of a room that just started.
func (b *Broadcaster) PublishGameStart(room Room) {
	b.publishRoom(room, &Event{Kind: EventGameStart, Room: &room})
}

// PublishChat fans a chat message out to the room, sender included.
func (b *Broadcaster) PublishChat(room Room, msg ChatMessage) {
	b.publishRoom(room, &Event{Kind: EventChatMessage, Chat: &msg})
}

// PublishLobbyChanged tells every live connection to refetch the lobby if it cares.
func (b *Broadcaster) PublishLobbyChanged() {
	ev := &Event{Kind: EventLobbyChanged}
	b.conns.Each(func(c *Client) {
		if !c.Deliver(ev) {
			b.log.Debug().Str("conn", c.ID).Str("event", ev.Kind.String()).Msg("event dropped")
		}
	})
}

// PublishToConnection sends one event to a single connection.
func (b *Broadcaster) PublishToConnection(connID string, ev *Event) bool {
	c, ok := b.conns.Client(connID)
	if !ok {
		return false
	}
	if !c.Deliver(ev) {
		b.log.Debug().Str("conn", connID).Str("event", ev.Kind.String()).Msg("event dropped")
		return false
	}
	return true
}

func (b *Broadcaster) publishRoom(room Room, ev *Event) {
	for _, m := range room.Members {
		if bound, ok := b.conns.Lookup(m.ConnID); !ok || bound != room.ID {
			continue
		}
		b.PublishToConnection(m.ConnID, ev)
	}
}
