package presence

import "strings"

// JoinResult reports the occupancy counter right after a successful join.
type JoinResult struct {
	Room    string
	Members int
}

// LeaveResult reports the occupancy counter after a leave, whether or not the
// participant was actually a member.
type LeaveResult struct {
	Room    string
	Members int
}

// Join adds the participant to the named room and increments its occupancy
// counter, creating the entry at 1 when the room did not exist. The name is
// trimmed first. A second join of the same room is rejected with
// ErrAlreadyInRoom rather than silently accepted, so the counter can never
// drift above the real membership.
func (c *Core) Join(id, room string) (JoinResult, error) {
	name := strings.TrimSpace(room)
	if name == "" {
		return JoinResult{}, ErrInvalidRoomName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.clients[id]
	if !ok {
		return JoinResult{}, ErrNotFound
	}
	if _, joined := p.rooms[name]; joined {
		return JoinResult{}, ErrAlreadyInRoom
	}

	p.rooms[name] = struct{}{}
	p.lastActivity = c.now()
	c.roomCounts[name]++
	return JoinResult{Room: name, Members: c.roomCounts[name]}, nil
}

// Leave removes the participant from the named room. Leaving a room the
// participant is not in (or leaving after disconnect) is a no-op success that
// reports the current counter, so cleanup paths can call it unconditionally.
func (c *Core) Leave(id, room string) (LeaveResult, error) {
	name := strings.TrimSpace(room)
	if name == "" {
		return LeaveResult{}, ErrInvalidRoomName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.clients[id]
	if ok {
		if _, member := p.rooms[name]; member {
			p.lastActivity = c.now()
			c.dropMembershipLocked(p, name)
		}
	}
	return LeaveResult{Room: name, Members: c.roomCounts[name]}, nil
}

// LeaveAll removes the participant from every joined room in one critical
// section. Unknown ids are ignored, which makes the call idempotent.
func (c *Core) LeaveAll(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.clients[id]; ok {
		c.cascadeLeaveLocked(p)
	}
}

// MemberCount returns the occupancy counter for the room, 0 when absent.
func (c *Core) MemberCount(room string) int {
	name := strings.TrimSpace(room)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCounts[name]
}

// IsMember reports whether the participant currently has the room in its set.
func (c *Core) IsMember(id, room string) bool {
	name := strings.TrimSpace(room)

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.clients[id]
	if !ok {
		return false
	}
	_, member := p.rooms[name]
	return member
}

// cascadeLeaveLocked drops every room membership of p. Caller holds the lock.
func (c *Core) cascadeLeaveLocked(p *participant) {
	for name := range p.rooms {
		c.dropMembershipLocked(p, name)
	}
}

// dropMembershipLocked removes one membership and decrements the counter,
// deleting the room entry when it reaches 0. The counter never goes negative.
// Caller holds the lock and has verified the membership exists.
func (c *Core) dropMembershipLocked(p *participant, name string) {
	delete(p.rooms, name)
	if count := c.roomCounts[name]; count > 1 {
		c.roomCounts[name] = count - 1
	} else {
		delete(c.roomCounts, name)
	}
}
