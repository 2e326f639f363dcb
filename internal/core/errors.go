package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidName   = "invalid_name"
	ErrCodeRoomNotFound  = "room_not_found"
	ErrCodeRoomFull      = "room_full"
	ErrCodeDuplicateName = "duplicate_name"
	ErrCodeNotInRoom     = "not_in_room"
	ErrCodeAlreadyInRoom = "already_in_room"
	ErrCodeEmptyMessage  = "empty_message"
	ErrCodeRoomStarted   = "room_started"
)

// Domain errors returned to the requesting connection. They are never broadcast.
var (
	ErrInvalidName   = coreError(ErrCodeInvalidName, "display name is too short")
	ErrRoomNotFound  = coreError(ErrCodeRoomNotFound, "room not found")
	ErrRoomFull      = coreError(ErrCodeRoomFull, "room is full")
	ErrDuplicateName = coreError(ErrCodeDuplicateName, "display name already taken")
	ErrNotInRoom     = coreError(ErrCodeNotInRoom, "not in room")
	ErrAlreadyInRoom = coreError(ErrCodeAlreadyInRoom, "already in a room")
	ErrEmptyMessage  = coreError(ErrCodeEmptyMessage, "message is empty")
	ErrRoomStarted   = coreError(ErrCodeRoomStarted, "room already started")
)

var (
	// ErrUnknownConnection is returned for a connection that was never registered
	// or is being torn down.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrAlreadyRegistered is returned when a connection ID is registered twice.
	ErrAlreadyRegistered = errors.New("connection already registered")
	// ErrCodeSpaceExhausted means no free room code was found after several attempts.
	ErrCodeSpaceExhausted = errors.New("no free room code")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// AsCoreError extracts a domain error from err.
func AsCoreError(err error) (*CoreError, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
