package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no room exists for a code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotHost is returned when a host-only operation comes from anyone else.
	ErrNotHost = errors.New("operation restricted to the room host")
	// ErrGameAlreadyStarted is returned on join attempts after the lobby closed.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrNoQuestionsLoaded is returned when a host starts an empty room.
	ErrNoQuestionsLoaded = errors.New("no questions loaded")
	// ErrDuplicateAnswer is returned on a second submission for the same
	// question; the first answer is kept untouched.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrInvalidState is returned when an operation arrives while the room
	// is not in the state it requires.
	ErrInvalidState = errors.New("operation not valid in current room state")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrSetNotFound indicates a question set ID is not in the catalog.
	ErrSetNotFound = errors.New("question set not found")
)
