// Package testhelpers provides common utilities for testing the Roomcast
// server.
//
// It wraps HTTP and WebSocket plumbing so integration tests can speak the
// envelope protocol directly: sending events, waiting for specific events,
// and asserting their absence.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Event is the wire envelope as integration tests see it.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Conn wraps a WebSocket connection with an event queue. The server may
// coalesce several frames into one message separated by newlines; the queue
// keeps every decoded event until a test asks for it.
type Conn struct {
	ws    *websocket.Conn
	queue []Event
}

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// ConnectWebSocket opens a WebSocket connection with the default allowed
// origin.
func ConnectWebSocket(url string) (*Conn, error) {
	return ConnectWebSocketWithOrigin(url, "http://localhost:8080")
}

// ConnectWebSocketWithOrigin opens a WebSocket connection presenting the
// given origin header.
func ConnectWebSocketWithOrigin(url, origin string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", origin)

	ws, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

// SendEvent marshals the payload into an envelope and sends it.
func (c *Conn) SendEvent(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.ws.WriteJSON(Event{Event: event, Data: raw})
}

// WaitForEvent reads events until one with the given name arrives and
// returns its decoded payload. Other events read along the way are dropped.
// It fails the test after three seconds.
func (c *Conn) WaitForEvent(t *testing.T, event string) map[string]any {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		ev, err := c.nextEvent(deadline)
		if err != nil {
			t.Fatalf("Timed out waiting for %q event: %v", event, err)
		}
		if ev.Event != event {
			continue
		}

		var data map[string]any
		if len(ev.Data) > 0 {
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				t.Fatalf("Failed to decode %q payload: %v", event, err)
			}
		}
		return data
	}
}

// AssertNoEvent reads for the given duration and fails the test if an event
// with the given name arrives. Other events are kept for later waits.
func (c *Conn) AssertNoEvent(t *testing.T, event string, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	var kept []Event
	for {
		ev, err := c.nextEvent(deadline)
		if err != nil {
			break
		}
		if ev.Event == event {
			t.Fatalf("Received unexpected %q event", event)
		}
		kept = append(kept, ev)
	}
	c.queue = append(kept, c.queue...)
}

// nextEvent pops the next queued event, reading and splitting another
// message from the connection when the queue is empty.
func (c *Conn) nextEvent(deadline time.Time) (Event, error) {
	for len(c.queue) == 0 {
		if err := c.ws.SetReadDeadline(deadline); err != nil {
			return Event{}, err
		}
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return Event{}, err
		}
		for _, part := range bytes.Split(raw, []byte{'\n'}) {
			if len(bytes.TrimSpace(part)) == 0 {
				continue
			}
			var ev Event
			if err := json.Unmarshal(part, &ev); err != nil {
				return Event{}, err
			}
			c.queue = append(c.queue, ev)
		}
	}

	ev := c.queue[0]
	c.queue = c.queue[1:]
	return ev, nil
}

// Close gracefully closes the WebSocket connection.
func (c *Conn) Close() error {
	err := c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return c.ws.Close()
	}
	return c.ws.Close()
}
