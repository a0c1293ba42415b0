package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSnapshotReflectsLiveState(t *testing.T) {
	c := NewCore()
	registerAll(t, c, "p1", "p2")
	_, err := c.Join("p1", "lobby")
	require.NoError(t, err)
	_, err = c.Join("p2", "lobby")
	require.NoError(t, err)
	_, err = c.Join("p2", "games")
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Equal(t, 2, snap.OnlineUsers)
	require.Equal(t, map[string]int{"lobby": 2, "games": 1}, snap.Rooms)
	require.False(t, snap.Timestamp.IsZero())
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	c := NewCore()
	registerAll(t, c, "p1")
	_, err := c.Join("p1", "lobby")
	require.NoError(t, err)

	snap := c.Snapshot()
	snap.Rooms["lobby"] = 99
	snap.Rooms["injected"] = 1

	fresh := c.Snapshot()
	require.Equal(t, map[string]int{"lobby": 1}, fresh.Rooms)
}

func TestSnapshotUsesCoreClock(t *testing.T) {
	c := NewCore()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(c, &at)

	require.Equal(t, at, c.Snapshot().Timestamp)
}

func TestSnapshotEmptyCore(t *testing.T) {
	c := NewCore()

	snap := c.Snapshot()
	require.Equal(t, 0, snap.OnlineUsers)
	require.NotNil(t, snap.Rooms)
	require.Empty(t, snap.Rooms)
}

func TestSnapshotForIncludesClientRecord(t *testing.T) {
	c := NewCore()
	registerAll(t, c, "p1", "p2")
	_, err := c.Join("p1", "lobby")
	require.NoError(t, err)

	snap := c.SnapshotFor("p1")
	require.Equal(t, 2, snap.OnlineUsers)
	require.NotNil(t, snap.Client)
	require.Equal(t, "p1", snap.Client.ID)
	require.Equal(t, []string{"lobby"}, snap.Client.Rooms)
}

func TestSnapshotForUnknownClient(t *testing.T) {
	c := NewCore()
	registerAll(t, c, "p1")

	snap := c.SnapshotFor("ghost")
	require.Equal(t, 1, snap.OnlineUsers)
	require.Nil(t, snap.Client)
}
