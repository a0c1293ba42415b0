package presence

import "errors"

// Sentinel errors reported back to the originating participant. All of them
// are recoverable: when one is returned the core state is left unchanged.
var (
	// ErrDuplicateID is returned by Register when the id is already tracked.
	// A correct transport never produces this, but the registry checks anyway.
	ErrDuplicateID = errors.New("participant id already registered")

	// ErrNotFound is returned when an operation references an id that is not
	// registered, typically because the participant already disconnected.
	ErrNotFound = errors.New("participant not registered")

	// ErrInvalidRoomName is returned when a room name is empty after trimming.
	ErrInvalidRoomName = errors.New("room name must not be empty")

	// ErrAlreadyInRoom rejects a second join of the same room, so the
	// occupancy counter can never be incremented twice for one membership.
	ErrAlreadyInRoom = errors.New("participant already joined this room")
)
