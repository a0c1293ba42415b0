package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/roomcast/test/testhelpers"
)

func TestJoinRoomFlow(t *testing.T) {
	ts, _ := startTestServer(t)

	c1, _ := connect(t, ts)
	c2, id2 := connect(t, ts)
	c1.WaitForEvent(t, "userConnected")

	require.NoError(t, c1.SendEvent("join-room", map[string]string{"room": "lobby"}))

	joined := c1.WaitForEvent(t, "roomJoined")
	require.Equal(t, "lobby", joined["room"])
	require.Equal(t, float64(1), joined["roomMembers"])

	stats := c2.WaitForEvent(t, "roomStats")
	rooms, ok := stats["rooms"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(1), rooms["lobby"])

	require.NoError(t, c2.SendEvent("join-room", map[string]string{"room": "lobby"}))

	note := c1.WaitForEvent(t, "userJoinedRoom")
	require.Equal(t, id2, note["clientId"])
	require.Equal(t, "lobby", note["room"])
	require.Equal(t, float64(2), note["roomMembers"])
}

func TestJoinRoomValidation(t *testing.T) {
	ts, _ := startTestServer(t)

	c1, _ := connect(t, ts)

	require.NoError(t, c1.SendEvent("join-room", map[string]string{"room": "   "}))
	failure := c1.WaitForEvent(t, "error")
	require.Contains(t, failure["message"], "room name")

	require.NoError(t, c1.SendEvent("join-room", map[string]string{"room": "lobby"}))
	c1.WaitForEvent(t, "roomJoined")

	require.NoError(t, c1.SendEvent("join-room", map[string]string{"room": "lobby"}))
	duplicate := c1.WaitForEvent(t, "error")
	require.Contains(t, duplicate["message"], "already")
}

func TestRoomMessageRouting(t *testing.T) {
	ts, _ := startTestServer(t)

	c1, _ := connect(t, ts)
	c2, _ := connect(t, ts)
	c3, id3 := connect(t, ts)

	require.NoError(t, c1.SendEvent("join-room", map[string]string{"room": "lobby"}))
	c1.WaitForEvent(t, "roomJoined")
	require.NoError(t, c2.SendEvent("join-room", map[string]string{"room": "lobby"}))
	c2.WaitForEvent(t, "roomJoined")

	// c3 addresses the room without being a member.
	require.NoError(t, c3.SendEvent("room-message", map[string]string{
		"room":   "lobby",
		"text":   "hi room",
		"sender": "carol",
	}))

	for name, member := range map[string]*testhelpers.Conn{"c1": c1, "c2": c2} {
		msg := member.WaitForEvent(t, "roomMessage")
		require.Equal(t, "lobby", msg["room"], name)
		require.Equal(t, "hi room", msg["text"], name)
		require.Equal(t, id3, msg["clientId"], name)
	}

	// The non-member sender gets no copy.
	c3.AssertNoEvent(t, "roomMessage", 300*time.Millisecond)
}

func TestLeaveRoomFlow(t *testing.T) {
	ts, _ := startTestServer(t)

	c1, id1 := connect(t, ts)
	c2, _ := connect(t, ts)

	require.NoError(t, c1.SendEvent("join-room", map[string]string{"room": "lobby"}))
	c1.WaitForEvent(t, "roomJoined")
	require.NoError(t, c2.SendEvent("join-room", map[string]string{"room": "lobby"}))
	c2.WaitForEvent(t, "roomJoined")

	require.NoError(t, c1.SendEvent("leave-room", map[string]string{"room": "lobby"}))

	left := c1.WaitForEvent(t, "roomLeft")
	require.Equal(t, "lobby", left["room"])

	note := c2.WaitForEvent(t, "userLeftRoom")
	require.Equal(t, id1, note["clientId"])
	require.Equal(t, float64(1), note["roomMembers"])
}

func TestLeaveRoomNonMemberSucceeds(t *testing.T) {
	ts, _ := startTestServer(t)

	c1, _ := connect(t, ts)

	require.NoError(t, c1.SendEvent("leave-room", map[string]string{"room": "nowhere"}))

	left := c1.WaitForEvent(t, "roomLeft")
	require.Equal(t, "nowhere", left["room"])
}

func TestDisconnectCascadesRoomMemberships(t *testing.T) {
	ts, _ := startTestServer(t)

	c1, _ := connect(t, ts)
	c2, _ := connect(t, ts)

	require.NoError(t, c1.SendEvent("join-room", map[string]string{"room": "lobby"}))
	c1.WaitForEvent(t, "roomJoined")
	require.NoError(t, c2.SendEvent("join-room", map[string]string{"room": "lobby"}))
	c2.WaitForEvent(t, "roomJoined")

	require.NoError(t, c1.Close())
	c2.WaitForEvent(t, "userDisconnected")

	require.NoError(t, c2.SendEvent("get-stats", nil))
	stats := c2.WaitForEvent(t, "stats")
	require.Equal(t, float64(1), stats["onlineUsers"])
	rooms, ok := stats["rooms"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(1), rooms["lobby"])
}
