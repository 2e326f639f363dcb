package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultMaxChatLength is the longest chat message kept, in runes.
const DefaultMaxChatLength = 500

// ChatRelay fans chat messages out to a room. It relies on the registry for
// authorization and keeps no room state of its own.
type ChatRelay struct {
	rooms  RoomStore
	conns  Registry
	out    *Broadcaster
	maxLen int
	clock  *monoClock
}

// NewChatRelay builds a relay. now may be nil to use the wall clock.
func NewChatRelay(rooms RoomStore, conns Registry, out *Broadcaster, maxLen int, now func() time.Time) *ChatRelay {
	if maxLen <= 0 {
		maxLen = DefaultMaxChatLength
	}
	if now == nil {
		now = time.Now
	}
	return &ChatRelay{
		rooms:  rooms,
		conns:  conns,
		out:    out,
		maxLen: maxLen,
		clock:  &monoClock{now: now},
	}
}

// Send relays text from connID to every member of roomID.
func (r *ChatRelay) Send(ctx context.Context, roomID, connID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	roomID = NormalizeCode(roomID)
	if !r.boundTo(connID, roomID) {
		return ErrNotInRoom
	}

	var sendErr error
	err := r.rooms.Exec(ctx, roomID, func() {
		if !r.boundTo(connID, roomID) {
			sendErr = ErrNotInRoom
			return
		}
		room, ok := r.rooms.Snapshot(roomID)
		if !ok {
			sendErr = ErrNotInRoom
			return
		}
		sender, ok := room.Member(connID)
		if !ok {
			sendErr = ErrNotInRoom
			return
		}
		r.out.PublishChat(room, ChatMessage{
			Room:      roomID,
			From:      sender.Name,
			Text:      truncateRunes(text, r.maxLen),
			CreatedAt: r.clock.stamp(),
		})
	})
	if errors.Is(err, ErrRoomNotFound) {
		return ErrNotInRoom
	}
	if err != nil {
		return err
	}
	return sendErr
}

func (r *ChatRelay) boundTo(connID, roomID string) bool {
	bound, ok := r.conns.Lookup(connID)
	return ok && bound == roomID
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
