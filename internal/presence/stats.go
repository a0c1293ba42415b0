package presence

import (
	"maps"
	"time"
)

// Stats is an immutable point-in-time copy of the aggregate presence state.
// The Rooms map is a copy and can be handed to the transport layer without
// aliasing the live counters.
type Stats struct {
	OnlineUsers int
	Rooms       map[string]int
	Timestamp   time.Time
}

// ClientStats extends Stats with the requesting participant's own record for
// the per-client stats query. Client is nil when the id is not registered.
type ClientStats struct {
	Stats
	Client *Participant
}

// Snapshot captures the current online-user count and room occupancy. It is
// always computed fresh from live state, under the same lock as mutations, so
// it can never show a counter that disagrees with the room sets.
func (c *Core) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SnapshotFor captures the aggregate state plus the participant's own record.
func (c *Core) SnapshotFor(id string) ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := ClientStats{Stats: c.snapshotLocked()}
	if p, ok := c.clients[id]; ok {
		record := p.view()
		stats.Client = &record
	}
	return stats
}

func (c *Core) snapshotLocked() Stats {
	return Stats{
		OnlineUsers: len(c.clients),
		Rooms:       maps.Clone(c.roomCounts),
		Timestamp:   c.now(),
	}
}
