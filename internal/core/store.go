package core

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

const maxCodeAttempts = 64

// NameScope decides where display names must be unique.
type NameScope string

const (
	// NameScopeRoom rejects duplicate names inside one room only.
	NameScopeRoom NameScope = "room"
	// NameScopeGlobal rejects a name already used in any live room.
	NameScopeGlobal NameScope = "global"
)

// RoomStore owns the set of live rooms.
//
// Methods that mutate or read a single room (JoinRoom, ToggleReady, Leave, Start,
// Snapshot) must run inside Exec for that room. CreateRoom, Exec, Summaries and Len
// only take the room-list lock.
type RoomStore interface {
	// CreateRoom picks a free code, runs claim with it and, if claim succeeds,
	// inserts a room holding the creator as its only member.
	CreateRoom(connID, displayName string, claim func(roomID string) error) (string, error)
	JoinRoom(roomID, connID, displayName string) error
	ToggleReady(roomID, connID string) (bool, error)
	// Leave removes the member. The room is deleted when it becomes empty.
	Leave(roomID, connID string) (deleted, wasFull bool)
	// Start moves an Open room to Started. It reports false if already started.
	Start(roomID string) bool
	Snapshot(roomID string) (Room, bool)
	// Exec runs fn on the room's worker, serialized with every other Exec for it.
	Exec(ctx context.Context, roomID string, fn func()) error
	Summaries() []Summary
	Len() int
	Close()
}

// Summary is a lock-free view of a room used for lobby listings.
type Summary struct {
	ID       string
	Members  int
	Capacity int
	Phase    Phase
	seq      uint64
}

// Listed reports whether the room belongs in the lobby.
func (s Summary) Listed() bool {
	return s.Phase == PhaseOpen && s.Members > 0 && s.Members < s.Capacity
}

// StoreOptions configures a MemoryRoomStore.
type StoreOptions struct {
	Capacity      int
	MinNameLength int
	NameScope     NameScope
	Codes         CodeGenerator
}

type roomEntry struct {
	state *roomState
	seq   uint64
	ops   chan func()
	done  chan struct{}

	members atomic.Int32
	started atomic.Bool

	// dissolved is set on the worker once the room is empty.
	dissolved bool
}

// MemoryRoomStore keeps rooms in memory with one worker goroutine per room.
type MemoryRoomStore struct {
	opts StoreOptions

	mu    sync.RWMutex
	rooms map[string]*roomEntry
	names map[string]string // display name -> room, NameScopeGlobal only
	seq   uint64

	quit      chan struct{}
	closeOnce sync.Once
}

// NewRoomStore builds an empty store. Zero options fall back to defaults.
func NewRoomStore(opts StoreOptions) *MemoryRoomStore {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.MinNameLength <= 0 {
		opts.MinNameLength = DefaultMinNameLength
	}
	if opts.NameScope == "" {
		opts.NameScope = NameScopeRoom
	}
	if opts.Codes == nil {
		opts.Codes = RandomCodes(DefaultCodeLength)
	}
	return &MemoryRoomStore{
		opts:  opts,
		rooms: make(map[string]*roomEntry),
		names: make(map[string]string),
		quit:  make(chan struct{}),
	}
}

func (s *MemoryRoomStore) CreateRoom(connID, displayName string, claim func(roomID string) error) (string, error) {
	name, err := NormalizeName(displayName, s.opts.MinNameLength)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.globalNames() {
		if _, taken := s.names[name]; taken {
			return "", ErrDuplicateName
		}
	}

	code, err := s.freeCode()
	if err != nil {
		return "", err
	}
	if claim != nil {
		if err := claim(code); err != nil {
			return "", err
		}
	}

	s.seq++
	e := &roomEntry{
		state: newRoomState(code, s.opts.Capacity, Member{ConnID: connID, Name: name}),
		seq:   s.seq,
		ops:   make(chan func()),
		done:  make(chan struct{}),
	}
	e.members.Store(1)
	s.rooms[code] = e
	if s.globalNames() {
		s.names[name] = code
	}

	go s.run(e)
	return code, nil
}

// freeCode must be called with s.mu held.
func (s *MemoryRoomStore) freeCode() (string, error) {
	for range maxCodeAttempts {
		code := NormalizeCode(s.opts.Codes())
		if code == "" {
			continue
		}
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func (s *MemoryRoomStore) JoinRoom(roomID, connID, displayName string) error {
	name, err := NormalizeName(displayName, s.opts.MinNameLength)
	if err != nil {
		return err
	}
	e, ok := s.entry(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if err := e.state.admit(name, !s.globalNames()); err != nil {
		return err
	}
	if s.globalNames() && !s.claimName(name, roomID) {
		return ErrDuplicateName
	}

	e.state.add(Member{ConnID: connID, Name: name})
	e.members.Store(int32(len(e.state.members)))
	return nil
}

func (s *MemoryRoomStore) ToggleReady(roomID, connID string) (bool, error) {
	e, ok := s.entry(roomID)
	if !ok {
		return false, ErrNotInRoom
	}
	return e.state.toggle(connID)
}

func (s *MemoryRoomStore) Leave(roomID, connID string) (deleted, wasFull bool) {
	e, ok := s.entry(roomID)
	if !ok {
		return false, false
	}
	removed, ok, wasFull := e.state.remove(connID)
	if !ok {
		return false, false
	}
	e.members.Store(int32(len(e.state.members)))
	if s.globalNames() {
		s.releaseName(removed.Name, roomID)
	}
	if len(e.state.members) > 0 {
		return false, wasFull
	}

	s.mu.Lock()
	if s.rooms[roomID] == e {
		delete(s.rooms, roomID)
	}
	s.mu.Unlock()
	e.dissolved = true
	return true, wasFull
}

func (s *MemoryRoomStore) Start(roomID string) bool {
	e, ok := s.entry(roomID)
	if !ok || e.state.phase == PhaseStarted {
		return false
	}
	e.state.phase = PhaseStarted
	e.started.Store(true)
	return true
}

func (s *MemoryRoomStore) Snapshot(roomID string) (Room, bool) {
	e, ok := s.entry(roomID)
	if !ok {
		return Room{}, false
	}
	return e.state.snapshot(), true
}

func (s *MemoryRoomStore) Exec(ctx context.Context, roomID string, fn func()) error {
	e, ok := s.entry(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}

	select {
	case e.ops <- op:
	case <-e.done:
		return ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// run is the room's worker. ops is unbuffered, so an accepted op always runs.
func (s *MemoryRoomStore) run(e *roomEntry) {
	defer close(e.done)
	for {
		select {
		case op := <-e.ops:
			op()
			if e.dissolved {
				return
			}
		case <-s.quit:
			return
		}
	}
}

func (s *MemoryRoomStore) Summaries() []Summary {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.rooms))
	for id, e := range s.rooms {
		phase := PhaseOpen
		if e.started.Load() {
			phase = PhaseStarted
		}
		out = append(out, Summary{
			ID:       id,
			Members:  int(e.members.Load()),
			Capacity: s.opts.Capacity,
			Phase:    phase,
			seq:      e.seq,
		})
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Summary) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

func (s *MemoryRoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Close stops every room worker. Pending and later Exec calls fail with ErrRoomNotFound.
func (s *MemoryRoomStore) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}

func (s *MemoryRoomStore) entry(roomID string) (*roomEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[roomID]
	return e, ok
}

func (s *MemoryRoomStore) globalNames() bool {
	return s.opts.NameScope == NameScopeGlobal
}

func (s *MemoryRoomStore) claimName(name, roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.names[name]; taken {
		return false
	}
	s.names[name] = roomID
	return true
}

func (s *MemoryRoomStore) releaseName(name, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.names[name] == roomID {
		delete(s.names, name)
	}
}

var _ RoomStore = (*MemoryRoomStore)(nil)
