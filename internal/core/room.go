package core

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultCapacity is the number of members a room holds.
	DefaultCapacity = 2
	// DefaultMinNameLength is the minimum display name length after trimming.
	DefaultMinNameLength = 3
)

// Phase is a room's coarse lifecycle state.
type Phase int

const (
	// PhaseOpen rooms accept joins, leaves and readiness toggles.
	PhaseOpen Phase = iota
	// PhaseStarted rooms are frozen; the start notification has been sent.
	PhaseStarted
)

func (p Phase) String() string {
	if p == PhaseStarted {
		return "started"
	}
	return "open"
}

// Member is a participant's state within a room.
type Member struct {
	ConnID string
	Name   string
	Ready  bool
}

// Room is an immutable snapshot of a live room. Members are in join order.
type Room struct {
	ID       string
	Members  []Member
	Phase    Phase
	Capacity int
}

// Full reports whether the room is at capacity.
func (r Room) Full() bool {
	return len(r.Members) >= r.Capacity
}

// AllReady reports whether every member is ready. An empty room is never ready.
func (r Room) AllReady() bool {
	if len(r.Members) == 0 {
		return false
	}
	for _, m := range r.Members {
		if !m.Ready {
			return false
		}
	}
	return true
}

// Listed reports whether the room belongs in the lobby.
func (r Room) Listed() bool {
	return r.Phase == PhaseOpen && len(r.Members) > 0 && len(r.Members) < r.Capacity
}

// Member returns the member bound to connID.
func (r Room) Member(connID string) (Member, bool) {
	for _, m := range r.Members {
		if m.ConnID == connID {
			return m, true
		}
	}
	return Member{}, false
}

// NormalizeName trims a display name and enforces the minimum length in runes.
func NormalizeName(raw string, minLen int) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) < minLen {
		return "", ErrInvalidName
	}
	return name, nil
}

// NormalizeCode canonicalizes user-typed room codes.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// roomState is the mutable state of one room.
// It is only touched from the room's worker goroutine.
type roomState struct {
	id       string
	capacity int
	members  []Member
	phase    Phase
}

func newRoomState(id string, capacity int, host Member) *roomState {
	members := make([]Member, 1, capacity)
	members[0] = host
	return &roomState{id: id, capacity: capacity, members: members}
}

func (s *roomState) indexOf(connID string) int {
	for i, m := range s.members {
		if m.ConnID == connID {
			return i
		}
	}
	return -1
}

func (s *roomState) hasName(name string) bool {
	for _, m := range s.members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// admit checks that a new member may join without changing anything.
// A full room reports RoomFull whatever its phase.
func (s *roomState) admit(name string, checkName bool) error {
	switch {
	case len(s.members) >= s.capacity:
		return ErrRoomFull
	case s.phase == PhaseStarted:
		return ErrRoomStarted
	case checkName && s.hasName(name):
		return ErrDuplicateName
	}
	return nil
}

func (s *roomState) add(m Member) {
	s.members = append(s.members, m)
}

// remove drops the member bound to connID.
func (s *roomState) remove(connID string) (removed Member, ok, wasFull bool) {
	i := s.indexOf(connID)
	if i < 0 {
		return Member{}, false, false
	}
	wasFull = len(s.members) >= s.capacity
	removed = s.members[i]
	s.members = append(s.members[:i], s.members[i+1:]...)
	return removed, true, wasFull
}

func (s *roomState) toggle(connID string) (bool, error) {
	if s.phase == PhaseStarted {
		return false, ErrRoomStarted
	}
	i := s.indexOf(connID)
	if i < 0 {
		return false, ErrNotInRoom
	}
	s.members[i].Ready = !s.members[i].Ready
	return s.members[i].Ready, nil
}

func (s *roomState) snapshot() Room {
	members := make([]Member, len(s.members))
	copy(members, s.members)
	return Room{
		ID:       s.id,
		Members:  members,
		Phase:    s.phase,
		Capacity: s.capacity,
	}
}
