package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var codePattern = regexp.MustCompile(`^[0-9A-Z]{6}$`)

func TestCreateRoomValidatesName(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")

	_, err := f.coord.CreateRoom(ctx, a.ID, "ab")
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = f.coord.CreateRoom(ctx, a.ID, "  ab  ")
	require.ErrorIs(t, err, ErrInvalidName)

	code, err := f.coord.CreateRoom(ctx, a.ID, "abc")
	require.NoError(t, err)
	assert.Regexp(t, codePattern, code)
	assert.Equal(t, 1, f.rooms.Len())

	ev := mustEvent(t, a.Events, EventRoomState)
	require.NotNil(t, ev.Room)
	assert.Equal(t, code, ev.Room.ID)
	require.Len(t, ev.Room.Members, 1)
	assert.Equal(t, "abc", ev.Room.Members[0].Name)
	assert.False(t, ev.Room.Members[0].Ready)
	mustEvent(t, a.Events, EventLobbyChanged)
}

func TestCreatedCodesAreUnique(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := range 50 {
		c := f.connect(t, fmt.Sprintf("c%d", i))
		code, err := f.coord.CreateRoom(ctx, c.ID, "host")
		require.NoError(t, err)
		require.False(t, seen[code], "code %s reused", code)
		seen[code] = true
	}
	assert.Equal(t, 50, f.rooms.Len())
}

func TestJoinSequenceStartsOnce(t *testing.T) {
	f := newFixture(t, StoreOptions{Codes: sequentialCodes()})
	ctx := context.Background()
	a := f.connect(t, "a")
	b := f.connect(t, "b")

	code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)
	require.Equal(t, []LobbyEntry{{RoomID: code, Members: 1}}, f.coord.ListOpenRooms(0))

	joined, err := f.coord.JoinRoom(ctx, b.ID, code, "bob")
	require.NoError(t, err)
	assert.Equal(t, code, joined)

	ev := mustEvent(t, b.Events, EventRoomState)
	require.Len(t, ev.Room.Members, 2)
	assert.False(t, ev.Room.Members[0].Ready)
	assert.False(t, ev.Room.Members[1].Ready)
	assert.Empty(t, f.coord.ListOpenRooms(0))

	ready, err := f.coord.ToggleReady(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ready)

	room, err := f.coord.RoomState(ctx, a.ID, code)
	require.NoError(t, err)
	assert.Equal(t, PhaseOpen, room.Phase)
	noEvent(t, a.Events, EventGameStart)

	ready, err = f.coord.ToggleReady(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ready)

	for _, c := range []*Client{a, b} {
		start := mustEvent(t, c.Events, EventGameStart)
		require.NotNil(t, start.Room)
		assert.Equal(t, PhaseStarted, start.Room.Phase)
		require.Len(t, start.Room.Members, 2)
		assert.True(t, start.Room.AllReady())
	}

	_, err = f.coord.ToggleReady(ctx, a.ID)
	require.ErrorIs(t, err, ErrRoomStarted)
	noEvent(t, a.Events, EventGameStart)
	noEvent(t, b.Events, EventGameStart)
}

func TestJoinRoomErrors(t *testing.T) {
	f := newFixture(t, StoreOptions{Codes: sequentialCodes()})
	ctx := context.Background()
	a := f.connect(t, "a")
	b := f.connect(t, "b")
	c := f.connect(t, "c")

	code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)

	_, err = f.coord.JoinRoom(ctx, b.ID, "NOPE00", "bob")
	require.ErrorIs(t, err, ErrRoomNotFound)

	_, err = f.coord.JoinRoom(ctx, b.ID, "NOPE00", "b")
	require.ErrorIs(t, err, ErrInvalidName, "name is checked before the room")

	_, err = f.coord.JoinRoom(ctx, b.ID, code, "alice")
	require.ErrorIs(t, err, ErrDuplicateName)
	_, bound := f.conns.Lookup(b.ID)
	assert.False(t, bound, "failed join must not leave a binding")

	_, err = f.coord.JoinRoom(ctx, b.ID, " aaaa01 ", "Alice")
	require.NoError(t, err, "codes are case-insensitive and names case-sensitive")

	_, err = f.coord.JoinRoom(ctx, c.ID, code, "carol")
	require.ErrorIs(t, err, ErrRoomFull)

	_, err = f.coord.JoinRoom(ctx, b.ID, code, "bobby")
	require.ErrorIs(t, err, ErrAlreadyInRoom)

	_, err = f.coord.CreateRoom(ctx, a.ID, "alice")
	require.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestLeaveLastMemberDeletesRoom(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")
	b := f.connect(t, "b")

	code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)
	drain(b.Events)

	require.NoError(t, f.coord.LeaveRoom(ctx, a.ID, code))
	assert.Equal(t, 0, f.rooms.Len())
	assert.Empty(t, f.coord.ListOpenRooms(0))
	mustEvent(t, b.Events, EventLobbyChanged)

	_, err = f.coord.JoinRoom(ctx, b.ID, code, "bob")
	require.ErrorIs(t, err, ErrRoomNotFound)

	require.ErrorIs(t, f.coord.LeaveRoom(ctx, a.ID, code), ErrNotInRoom)
}

func TestDisconnectReopensRoom(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")
	b := f.connect(t, "b")

	code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)
	_, err = f.coord.JoinRoom(ctx, b.ID, code, "bob")
	require.NoError(t, err)
	require.Empty(t, f.coord.ListOpenRooms(0))
	drain(a.Events)

	f.coord.Disconnect(b.ID)

	ev := mustEvent(t, a.Events, EventRoomState)
	require.Len(t, ev.Room.Members, 1)
	assert.Equal(t, "alice", ev.Room.Members[0].Name)
	mustEvent(t, a.Events, EventLobbyChanged)

	want := []LobbyEntry{{RoomID: code, Members: 1}}
	assert.Equal(t, want, f.coord.ListOpenRooms(0))
	assert.Equal(t, 1, f.rooms.Len())
	assert.Equal(t, 1, f.conns.Len())

	// A second cleanup changes nothing.
	f.coord.Disconnect(b.ID)
	noEvent(t, a.Events, EventRoomState)
	assert.Equal(t, want, f.coord.ListOpenRooms(0))
	assert.Equal(t, 1, f.conns.Len())
}

func TestDisconnectLastMemberDeletesRoom(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")

	_, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)

	f.coord.Disconnect(a.ID)
	f.coord.Disconnect(a.ID)
	assert.Equal(t, Stats{}, f.coord.Stats())
}

func TestDisconnectFromStartedRoom(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")
	b := f.connect(t, "b")

	code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)
	_, err = f.coord.JoinRoom(ctx, b.ID, code, "bob")
	require.NoError(t, err)
	_, err = f.coord.ToggleReady(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.coord.ToggleReady(ctx, b.ID)
	require.NoError(t, err)
	mustEvent(t, a.Events, EventGameStart)

	require.ErrorIs(t, f.coord.LeaveRoom(ctx, b.ID, code), ErrRoomStarted)

	f.coord.Disconnect(b.ID)
	room, err := f.coord.RoomState(ctx, a.ID, code)
	require.NoError(t, err)
	assert.Equal(t, PhaseStarted, room.Phase)
	require.Len(t, room.Members, 1)
	assert.Empty(t, f.coord.ListOpenRooms(0), "started rooms are never listed")

	c := f.connect(t, "c")
	_, err = f.coord.JoinRoom(ctx, c.ID, code, "carol")
	require.ErrorIs(t, err, ErrRoomStarted)
}

func TestJoinFullStartedRoomReportsFull(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")
	b := f.connect(t, "b")
	c := f.connect(t, "c")

	code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)
	_, err = f.coord.JoinRoom(ctx, b.ID, code, "bob")
	require.NoError(t, err)
	for _, id := range []string{a.ID, b.ID} {
		_, err = f.coord.ToggleReady(ctx, id)
		require.NoError(t, err)
	}
	mustEvent(t, a.Events, EventGameStart)

	_, err = f.coord.JoinRoom(ctx, c.ID, code, "carol")
	require.ErrorIs(t, err, ErrRoomFull)
}

func TestToggleReadyNotInRoom(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	a := f.connect(t, "a")

	_, err := f.coord.ToggleReady(context.Background(), a.ID)
	require.ErrorIs(t, err, ErrNotInRoom)
}

func TestToggleReadyTwiceClearsReady(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")

	_, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)

	ready, err := f.coord.ToggleReady(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ready)
	ready, err = f.coord.ToggleReady(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ready)
	noEvent(t, a.Events, EventGameStart)
}

func TestGetRoomStateIsUnicast(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")
	b := f.connect(t, "b")
	stranger := f.connect(t, "s")

	code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)
	_, err = f.coord.JoinRoom(ctx, b.ID, code, "bob")
	require.NoError(t, err)
	drain(a.Events)
	drain(b.Events)
	drain(stranger.Events)

	f.coord.GetRoomState(ctx, stranger.ID, code)
	noEvent(t, stranger.Events, EventRoomState)

	f.coord.GetRoomState(ctx, a.ID, code)
	ev := mustEvent(t, a.Events, EventRoomState)
	assert.Len(t, ev.Room.Members, 2)
	noEvent(t, b.Events, EventRoomState)

	_, err = f.coord.RoomState(ctx, stranger.ID, code)
	require.ErrorIs(t, err, ErrNotInRoom)
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	for round := range 20 {
		f := newFixture(t, StoreOptions{})
		ctx := context.Background()
		host := f.connect(t, "host")

		code, err := f.coord.CreateRoom(ctx, host.ID, "host")
		require.NoError(t, err)

		const joiners = 16
		errs := make([]error, joiners)
		var g errgroup.Group
		for i := range joiners {
			c := f.connect(t, fmt.Sprintf("j%d", i))
			g.Go(func() error {
				_, errs[i] = f.coord.JoinRoom(ctx, c.ID, code, fmt.Sprintf("player%d", i))
				return nil
			})
		}
		require.NoError(t, g.Wait())

		joined := 0
		for _, err := range errs {
			if err == nil {
				joined++
				continue
			}
			require.ErrorIs(t, err, ErrRoomFull, "round %d", round)
		}
		assert.Equal(t, 1, joined, "round %d", round)

		room, err := f.coord.RoomState(ctx, host.ID, code)
		require.NoError(t, err)
		assert.Len(t, room.Members, 2)
	}
}

func TestConcurrentLastTogglesStartExactlyOnce(t *testing.T) {
	for round := range 50 {
		f := newFixture(t, StoreOptions{})
		ctx := context.Background()
		a := f.connect(t, "a")
		b := f.connect(t, "b")

		code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
		require.NoError(t, err)
		_, err = f.coord.JoinRoom(ctx, b.ID, code, "bob")
		require.NoError(t, err)

		var g errgroup.Group
		for _, c := range []*Client{a, b} {
			g.Go(func() error {
				_, err := f.coord.ToggleReady(ctx, c.ID)
				return err
			})
		}
		require.NoError(t, g.Wait())

		starts := 0
		for len(a.Events) > 0 {
			if ev := <-a.Events; ev.Kind == EventGameStart {
				starts++
			}
		}
		assert.Equal(t, 1, starts, "round %d", round)
	}
}

func TestConcurrentDisconnectAndJoin(t *testing.T) {
	for round := range 20 {
		f := newFixture(t, StoreOptions{})
		ctx := context.Background()
		a := f.connect(t, "a")
		b := f.connect(t, "b")

		code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
		require.NoError(t, err)

		var g errgroup.Group
		g.Go(func() error {
			f.coord.Disconnect(a.ID)
			return nil
		})
		g.Go(func() error {
			_, err := f.coord.JoinRoom(ctx, b.ID, code, "bob")
			if err != nil && !errors.Is(err, ErrRoomNotFound) {
				return err
			}
			return nil
		})
		require.NoError(t, g.Wait(), "round %d", round)

		_, bound := f.conns.Lookup(b.ID)
		room, serr := f.coord.RoomState(ctx, b.ID, code)
		if bound {
			require.NoError(t, serr)
			require.Len(t, room.Members, 1)
			assert.Equal(t, "bob", room.Members[0].Name)
		} else {
			assert.Equal(t, 0, f.rooms.Len())
		}
		assert.Equal(t, 1, f.conns.Len())
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, StoreOptions{})
	ctx := context.Background()
	a := f.connect(t, "a")
	b := f.connect(t, "b")
	c := f.connect(t, "c")

	code, err := f.coord.CreateRoom(ctx, a.ID, "alice")
	require.NoError(t, err)
	_, err = f.coord.CreateRoom(ctx, c.ID, "carol")
	require.NoError(t, err)
	_, err = f.coord.JoinRoom(ctx, b.ID, code, "bob")
	require.NoError(t, err)

	assert.Equal(t, Stats{Rooms: 2, OpenRooms: 1, Connections: 3}, f.coord.Stats())
}
