package presence

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// Participant is a point-in-time copy of one tracked connection. Mutating it
// has no effect on the registry.
type Participant struct {
	ID           string
	ConnectedAt  time.Time
	Rooms        []string
	LastActivity time.Time
}

func (p *participant) view() Participant {
	rooms := lo.Keys(p.rooms)
	sort.Strings(rooms)
	return Participant{
		ID:           p.id,
		ConnectedAt:  p.connectedAt,
		Rooms:        rooms,
		LastActivity: p.lastActivity,
	}
}

// Register creates a participant record with an empty room set. It returns
// ErrDuplicateID if the id is already tracked.
func (c *Core) Register(id string) (Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.clients[id]; exists {
		return Participant{}, ErrDuplicateID
	}

	now := c.now()
	p := &participant{
		id:           id,
		connectedAt:  now,
		rooms:        make(map[string]struct{}),
		lastActivity: now,
	}
	c.clients[id] = p
	return p.view(), nil
}

// Unregister removes the participant record and returns it. The returned room
// list tells the caller which occupancy counters still reference the
// participant; Disconnect performs that cleanup and the removal in one step.
func (c *Core) Unregister(id string) (Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.clients[id]
	if !ok {
		return Participant{}, ErrNotFound
	}
	record := p.view()
	delete(c.clients, id)
	return record, nil
}

// Touch updates the participant's last-activity timestamp. Unknown ids are
// ignored: a message frame may race a disconnect and that is not an error.
func (c *Core) Touch(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.clients[id]; ok {
		p.lastActivity = c.now()
	}
}

// Get returns a copy of the participant record, if registered.
func (c *Core) Get(id string) (Participant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.clients[id]
	if !ok {
		return Participant{}, false
	}
	return p.view(), true
}

// Count returns the number of registered participants.
func (c *Core) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Disconnect removes the participant from every joined room and from the
// registry under a single lock acquisition, so an observer taking a snapshot
// either sees the participant fully present or fully gone. The returned
// record still lists the rooms the participant occupied before teardown.
func (c *Core) Disconnect(id string) (Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.clients[id]
	if !ok {
		return Participant{}, ErrNotFound
	}
	record := p.view()
	c.cascadeLeaveLocked(p)
	delete(c.clients, id)
	return record, nil
}
