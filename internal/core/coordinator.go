package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Options tunes a Coordinator. Zero values fall back to defaults.
type Options struct {
	MinNameLength int
	LobbyLimit    int
	MaxChatLength int
	Logger        *zerolog.Logger
}

// Stats is a point-in-time count of live objects.
type Stats struct {
	Rooms       int
	OpenRooms   int
	Connections int
}

// Coordinator is the only writer of room and membership state.
// Every mutation of a room runs on that room's worker through RoomStore.Exec.
type Coordinator struct {
	rooms   RoomStore
	conns   Registry
	lobby   *Lobby
	out     *Broadcaster
	chat    *ChatRelay
	minName int
	log     *zerolog.Logger
}

// NewCoordinator wires a coordinator over the given stores.
func NewCoordinator(rooms RoomStore, conns Registry, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.MinNameLength <= 0 {
		opts.MinNameLength = DefaultMinNameLength
	}
	out := NewBroadcaster(conns, logger)
	return &Coordinator{
		rooms:   rooms,
		conns:   conns,
		lobby:   NewLobby(rooms, opts.LobbyLimit),
		out:     out,
		chat:    NewChatRelay(rooms, conns, out, opts.MaxChatLength, nil),
		minName: opts.MinNameLength,
		log:     logger,
	}
}

// Connect registers a transport session with no room.
func (c *Coordinator) Connect(client *Client) error {
	if err := c.conns.Register(client); err != nil {
		return err
	}
	c.log.Debug().Str("conn", client.ID).Msg("connection registered")
	return nil
}

// ListOpenRooms returns the joinable rooms. A non-positive limit uses the default.
func (c *Coordinator) ListOpenRooms(limit int) []LobbyEntry {
	return c.lobby.ListOpenRooms(limit)
}

// CreateRoom opens a new room with connID as its only member and returns its code.
func (c *Coordinator) CreateRoom(ctx context.Context, connID, displayName string) (string, error) {
	name, err := NormalizeName(displayName, c.minName)
	if err != nil {
		return "", err
	}
	if _, bound := c.conns.Lookup(connID); bound {
		return "", ErrAlreadyInRoom
	}

	roomID, err := c.rooms.CreateRoom(connID, name, func(id string) error {
		return c.conns.Bind(connID, id)
	})
	if err != nil {
		return "", err
	}
	c.log.Info().Str("room", roomID).Str("conn", connID).Msg("room created")

	// The creator may already be gone; the room then belongs to its disconnect cleanup.
	err = c.rooms.Exec(ctx, roomID, func() {
		room, ok := c.rooms.Snapshot(roomID)
		if !ok {
			return
		}
		c.out.PublishRoomState(room)
		if room.Listed() {
			c.out.PublishLobbyChanged()
		}
	})
	if err != nil && !errors.Is(err, ErrRoomNotFound) {
		return roomID, err
	}
	return roomID, nil
}

// JoinRoom adds connID to the room identified by code.
func (c *Coordinator) JoinRoom(ctx context.Context, connID, code, displayName string) (string, error) {
	name, err := NormalizeName(displayName, c.minName)
	if err != nil {
		return "", err
	}
	roomID := NormalizeCode(code)
	if _, bound := c.conns.Lookup(connID); bound {
		return "", ErrAlreadyInRoom
	}

	var joinErr error
	err = c.rooms.Exec(ctx, roomID, func() {
		before, ok := c.rooms.Snapshot(roomID)
		if !ok {
			joinErr = ErrRoomNotFound
			return
		}
		if err := c.conns.Bind(connID, roomID); err != nil {
			joinErr = err
			return
		}
		if err := c.rooms.JoinRoom(roomID, connID, name); err != nil {
			c.conns.Unbind(connID)
			joinErr = err
			return
		}
		after, _ := c.rooms.Snapshot(roomID)
		c.out.PublishRoomState(after)
		if before.Listed() != after.Listed() {
			c.out.PublishLobbyChanged()
		}
	})
	if err != nil {
		return "", err
	}
	if joinErr != nil {
		return "", joinErr
	}
	c.log.Info().Str("room", roomID).Str("conn", connID).Msg("room joined")
	return roomID, nil
}

// LeaveRoom removes connID from an Open room it belongs to.
func (c *Coordinator) LeaveRoom(ctx context.Context, connID, code string) error {
	roomID := NormalizeCode(code)
	if bound, ok := c.conns.Lookup(connID); !ok || bound != roomID {
		return ErrNotInRoom
	}

	var leaveErr error
	err := c.rooms.Exec(ctx, roomID, func() {
		if bound, ok := c.conns.Lookup(connID); !ok || bound != roomID {
			leaveErr = ErrNotInRoom
			return
		}
		room, ok := c.rooms.Snapshot(roomID)
		if !ok {
			leaveErr = ErrNotInRoom
			return
		}
		if room.Phase == PhaseStarted {
			leaveErr = ErrRoomStarted
			return
		}
		c.detach(room, connID)
	})
	if errors.Is(err, ErrRoomNotFound) {
		return ErrNotInRoom
	}
	if err != nil {
		return err
	}
	if leaveErr == nil {
		c.log.Info().Str("room", roomID).Str("conn", connID).Msg("room left")
	}
	return leaveErr
}

// ToggleReady flips the readiness of connID in its bound room and starts the
// room when it is full and everyone is ready.
func (c *Coordinator) ToggleReady(ctx context.Context, connID string) (bool, error) {
	roomID, ok := c.conns.Lookup(connID)
	if !ok {
		return false, ErrNotInRoom
	}

	var (
		ready     bool
		toggleErr error
	)
	err := c.rooms.Exec(ctx, roomID, func() {
		if bound, ok := c.conns.Lookup(connID); !ok || bound != roomID {
			toggleErr = ErrNotInRoom
			return
		}
		ready, toggleErr = c.rooms.ToggleReady(roomID, connID)
		if toggleErr != nil {
			return
		}
		room, _ := c.rooms.Snapshot(roomID)
		c.out.PublishRoomState(room)

		if room.Full() && room.AllReady() && c.rooms.Start(roomID) {
			started, _ := c.rooms.Snapshot(roomID)
			c.out.PublishGameStart(started)
			c.log.Info().Str("room", roomID).Msg("game started")
		}
	})
	if errors.Is(err, ErrRoomNotFound) {
		return false, ErrNotInRoom
	}
	if err != nil {
		return false, err
	}
	return ready, toggleErr
}

// RoomState returns a snapshot of a room connID belongs to.
func (c *Coordinator) RoomState(ctx context.Context, connID, code string) (Room, error) {
	roomID := NormalizeCode(code)
	if bound, ok := c.conns.Lookup(connID); !ok || bound != roomID {
		return Room{}, ErrNotInRoom
	}

	var (
		room     Room
		stateErr error
	)
	err := c.rooms.Exec(ctx, roomID, func() {
		if bound, ok := c.conns.Lookup(connID); !ok || bound != roomID {
			stateErr = ErrNotInRoom
			return
		}
		var found bool
		room, found = c.rooms.Snapshot(roomID)
		if !found {
			stateErr = ErrNotInRoom
		}
	})
	if errors.Is(err, ErrRoomNotFound) {
		return Room{}, ErrNotInRoom
	}
	if err != nil {
		return Room{}, err
	}
	return room, stateErr
}

// GetRoomState sends a point-in-time snapshot to connID only. Requests from
// non-members are ignored.
func (c *Coordinator) GetRoomState(ctx context.Context, connID, code string) {
	roomID := NormalizeCode(code)
	if bound, ok := c.conns.Lookup(connID); !ok || bound != roomID {
		return
	}
	_ = c.rooms.Exec(ctx, roomID, func() {
		if bound, ok := c.conns.Lookup(connID); !ok || bound != roomID {
			return
		}
		room, ok := c.rooms.Snapshot(roomID)
		if !ok {
			return
		}
		c.out.PublishToConnection(connID, &Event{Kind: EventRoomState, Room: &room})
	})
}

// SendChatMessage relays a chat line. Failures are returned for logging but are
// never reported to other members.
func (c *Coordinator) SendChatMessage(ctx context.Context, connID, code, text string) error {
	return c.chat.Send(ctx, code, connID, text)
}

// Disconnect cleans up after a closed transport. It is safe to call more than once.
func (c *Coordinator) Disconnect(connID string) {
	roomID, bound := c.conns.Retire(connID)
	if bound {
		err := c.rooms.Exec(context.Background(), roomID, func() {
			if current, ok := c.conns.Lookup(connID); !ok || current != roomID {
				return
			}
			room, ok := c.rooms.Snapshot(roomID)
			if !ok {
				c.conns.Unbind(connID)
				return
			}
			c.detach(room, connID)
		})
		if err != nil {
			c.log.Debug().Err(err).Str("conn", connID).Str("room", roomID).Msg("disconnect cleanup skipped")
		}
	}
	if _, ok := c.conns.Remove(connID); ok || bound {
		c.log.Debug().Str("conn", connID).Msg("connection removed")
	}
}

// Stats counts live rooms and connections.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Rooms:       c.rooms.Len(),
		OpenRooms:   c.lobby.CountOpen(),
		Connections: c.conns.Len(),
	}
}

// detach removes connID from room and notifies whoever is affected.
// It must run on the room's worker.
func (c *Coordinator) detach(before Room, connID string) {
	deleted, _ := c.rooms.Leave(before.ID, connID)
	c.conns.Unbind(connID)

	if deleted {
		c.log.Info().Str("room", before.ID).Msg("room deleted")
		if before.Listed() {
			c.out.PublishLobbyChanged()
		}
		return
	}
	after, ok := c.rooms.Snapshot(before.ID)
	if !ok {
		return
	}
	c.out.PublishRoomState(after)
	if before.Listed() != after.Listed() {
		c.out.PublishLobbyChanged()
	}
}
