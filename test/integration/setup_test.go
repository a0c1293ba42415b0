// Package integration contains end-to-end tests that exercise the Roomcast
// server over real HTTP and WebSocket connections.
package integration

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/roomcast/internal/presence"
	"github.com/example/roomcast/internal/server"
	"github.com/example/roomcast/test/testhelpers"
)

// startTestServer boots a hub and an HTTP test server around it. The rate
// limit burst is raised so tests can send frames back to back.
func startTestServer(t *testing.T) (*httptest.Server, *server.Hub) {
	t.Helper()

	server.SetConfig(&server.Config{
		AllowedOrigins: []string{"http://localhost:8080"},
		RateLimit: server.RateLimitConfig{
			Burst:          100,
			RefillInterval: time.Second,
		},
	})
	t.Cleanup(func() { server.SetConfig(nil) })

	hub := server.NewHub(presence.NewCore())
	hub.Start()

	ts := testhelpers.CreateTestServer(server.SetupRoutes(hub))
	t.Cleanup(func() {
		ts.Close()
		if err := hub.Shutdown(3 * time.Second); err != nil {
			t.Logf("Hub shutdown: %v", err)
		}
	})

	return ts, hub
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// connect opens a WebSocket client against the test server and consumes both
// welcome frames, returning the connection and the assigned participant id.
func connect(t *testing.T, ts *httptest.Server) (*testhelpers.Conn, string) {
	t.Helper()

	conn, err := testhelpers.ConnectWebSocket(wsURL(ts))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	welcome := conn.WaitForEvent(t, "connected")
	id, _ := welcome["clientId"].(string)
	require.NotEmpty(t, id)
	conn.WaitForEvent(t, "roomStats")
	return conn, id
}
