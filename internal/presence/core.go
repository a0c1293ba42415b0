package presence

import (
	"sync"
	"time"
)

// Core owns the participant registry and the room occupancy counters. It is
// the single serialization point required by the presence subsystem: every
// operation takes the core mutex, so readers can never observe a torn
// intermediate state such as a decremented counter with a stale room set.
type Core struct {
	mu         sync.Mutex
	clients    map[string]*participant
	roomCounts map[string]int
	now        func() time.Time
}

// participant is the live, mutable record of one connection. It never leaves
// the package; external callers get Participant copies instead.
type participant struct {
	id           string
	connectedAt  time.Time
	rooms        map[string]struct{}
	lastActivity time.Time
}

// NewCore creates an empty core ready to track participants and rooms.
func NewCore() *Core {
	return &Core{
		clients:    make(map[string]*participant),
		roomCounts: make(map[string]int),
		now:        time.Now,
	}
}
