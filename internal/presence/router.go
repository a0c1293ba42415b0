package presence

import "strings"

// Scope selects the audience of an outbound dispatch.
type Scope int

const (
	// ScopeGlobal targets every registered participant.
	ScopeGlobal Scope = iota
	// ScopeRoom targets the participants whose room set contains the room.
	ScopeRoom
	// ScopeDirect targets only the originating participant.
	ScopeDirect
)

// Intent describes one outbound dispatch for the router to resolve.
type Intent struct {
	Scope         Scope
	Room          string
	Sender        string
	ExcludeSender bool
}

// Global targets all registered participants.
func Global() Intent {
	return Intent{Scope: ScopeGlobal}
}

// GlobalExcluding targets all registered participants except the sender.
func GlobalExcluding(sender string) Intent {
	return Intent{Scope: ScopeGlobal, Sender: sender, ExcludeSender: true}
}

// Room targets every member of the named room, the sender included when it is
// a member.
func Room(name string) Intent {
	return Intent{Scope: ScopeRoom, Room: name}
}

// RoomExcluding targets the members of the named room except the sender.
func RoomExcluding(name, sender string) Intent {
	return Intent{Scope: ScopeRoom, Room: name, Sender: sender, ExcludeSender: true}
}

// Direct targets the originating participant only.
func Direct(sender string) Intent {
	return Intent{Scope: ScopeDirect, Sender: sender}
}

// Resolve computes the recipient ids for the intent against the current
// registry state. There is no queue: a participant that disconnects between
// message origination and dispatch simply drops out of the resolution, and
// delivering to an id that is gone by send time is the transport's no-op.
func (c *Core) Resolve(intent Intent) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch intent.Scope {
	case ScopeDirect:
		if _, ok := c.clients[intent.Sender]; !ok {
			return nil
		}
		return []string{intent.Sender}

	case ScopeRoom:
		name := strings.TrimSpace(intent.Room)
		if name == "" {
			return nil
		}
		recipients := make([]string, 0, c.roomCounts[name])
		for id, p := range c.clients {
			if intent.ExcludeSender && id == intent.Sender {
				continue
			}
			if _, member := p.rooms[name]; member {
				recipients = append(recipients, id)
			}
		}
		return recipients

	default:
		recipients := make([]string, 0, len(c.clients))
		for id := range c.clients {
			if intent.ExcludeSender && id == intent.Sender {
				continue
			}
			recipients = append(recipients, id)
		}
		return recipients
	}
}
