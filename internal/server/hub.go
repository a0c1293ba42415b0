// Package server coordinates participant registration, event dispatch, and
// connection cleanup for the Roomcast WebSocket service via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/example/roomcast/internal/presence"
)

// Hub owns the WebSocket side of every connection and translates inbound
// frames into presence core calls. Its Run loop processes registration,
// unregistration, and inbound frames one at a time, in arrival order.
// Recipient sets are resolved against the core; the actual sends go to
// buffered per-client channels, never while the core lock is held.
type Hub struct {
	core       *presence.Core
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// inboundFrame pairs a raw frame with the connection it arrived on.
type inboundFrame struct {
	client  *Client
	payload []byte
}

// NewHub creates a hub bound to the given presence core. The hub is the only
// component that calls into the core; handlers reach it through the value
// returned here, never through package state.
func NewHub(core *presence.Core) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		core:       core,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start launches the hub event loop in its own goroutine.
func (h *Hub) Start() {
	go h.Run()
	log.Println("Hub started and ready to manage WebSocket connections")
}

// Run processes hub events until shutdown. Call it in a dedicated goroutine;
// it returns only after the context is cancelled.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			if !h.admitClient(client) {
				continue
			}

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.disconnectClient(client)

		case frame := <-h.inbound:
			h.handleFrame(frame.client, frame.payload)
		}
	}
}

// admitClient adds the connection to the client map, registers the
// participant with the core, and sends the welcome frames. It reports false
// when the client could not be admitted.
func (h *Hub) admitClient(client *Client) bool {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	h.mutex.Unlock()

	if _, err := h.core.Register(client.id); err != nil {
		// An id collision means the upgrade handler produced a duplicate
		// UUID; refuse the connection instead of corrupting the counts.
		log.Printf("Refusing client %s from %s: %v", client.id, client.addr, err)
		h.mutex.Lock()
		delete(h.clients, client.id)
		client.closed = true
		h.mutex.Unlock()
		close(client.send)
		if client.conn != nil {
			_ = client.conn.Close()
		}
		return false
	}

	snap := h.core.Snapshot()
	log.Printf("Participant %s connected from %s. Online: %d", client.id, client.addr, snap.OnlineUsers)

	ts := timestamp(snap.Timestamp)
	h.sendEvent(client.id, EventConnected, PresencePayload{
		ClientID:    client.id,
		Message:     "connected",
		Timestamp:   ts,
		OnlineUsers: snap.OnlineUsers,
	})
	h.fanOut(presence.GlobalExcluding(client.id), EventUserConnected, PresencePayload{
		ClientID:    client.id,
		Message:     "participant connected",
		Timestamp:   ts,
		OnlineUsers: snap.OnlineUsers,
	})
	h.sendEvent(client.id, EventRoomStats, roomStatsPayload(snap))
	return true
}

// disconnectClient tears a connection down. It is reached from the read pump
// via the unregister channel and directly when a send buffer overflows; the
// core teardown runs at most once, so racing paths are safe to overlap.
func (h *Hub) disconnectClient(client *Client) {
	if client == nil {
		return
	}

	h.mutex.Lock()
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
		client.closed = true
		h.mutex.Unlock()
		// Close the channel after releasing the lock.
		close(client.send)
	} else {
		h.mutex.Unlock()
	}

	if _, err := h.core.Disconnect(client.id); err != nil {
		return
	}

	snap := h.core.Snapshot()
	log.Printf("Participant %s disconnected. Online: %d", client.id, snap.OnlineUsers)
	h.fanOut(presence.Global(), EventUserDisconnected, PresencePayload{
		ClientID:    client.id,
		Message:     "participant disconnected",
		Timestamp:   timestamp(snap.Timestamp),
		OnlineUsers: snap.OnlineUsers,
	})
}

// handleFrame decodes one inbound envelope and dispatches it. Malformed and
// unknown frames answer the sender with an error frame and change nothing.
func (h *Hub) handleFrame(client *Client, payload []byte) {
	var frame Envelope
	if err := json.Unmarshal(payload, &frame); err != nil {
		h.sendError(client, `invalid frame: expected {"event", "data"}`)
		return
	}

	switch frame.Event {
	case EventMessage:
		h.handleMessage(client, frame.Data)
	case EventJoinRoom:
		h.handleJoinRoom(client, frame.Data)
	case EventLeaveRoom:
		h.handleLeaveRoom(client, frame.Data)
	case EventRoomMessage:
		h.handleRoomMessage(client, frame.Data)
	case EventGetStats:
		h.handleGetStats(client)
	default:
		h.sendError(client, fmt.Sprintf("unsupported event %q", frame.Event))
	}
}

func (h *Hub) handleMessage(client *Client, raw json.RawMessage) {
	var data MessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		h.sendError(client, "invalid message payload")
		return
	}

	h.core.Touch(client.id)
	h.fanOut(presence.Global(), EventMessage, MessagePayload{
		Text:      data.Text,
		Sender:    data.Sender,
		ClientID:  client.id,
		Timestamp: timestamp(time.Now()),
	})
}

func (h *Hub) handleJoinRoom(client *Client, raw json.RawMessage) {
	var data RoomData
	if err := json.Unmarshal(raw, &data); err != nil {
		h.sendError(client, "invalid join-room payload")
		return
	}

	res, err := h.core.Join(client.id, data.Room)
	if err != nil {
		h.rejectRoomOp(client, err)
		return
	}

	log.Printf("Participant %s joined room %q (%d members)", client.id, res.Room, res.Members)
	ts := timestamp(time.Now())
	h.sendEvent(client.id, EventRoomJoined, RoomJoinedPayload{
		Room:        res.Room,
		Message:     "joined room " + res.Room,
		Timestamp:   ts,
		RoomMembers: res.Members,
	})
	h.fanOut(presence.RoomExcluding(res.Room, client.id), EventUserJoinedRoom, UserRoomPayload{
		ClientID:    client.id,
		Room:        res.Room,
		Message:     "participant joined the room",
		Timestamp:   ts,
		RoomMembers: res.Members,
	})
	h.broadcastRoomStats()
}

func (h *Hub) handleLeaveRoom(client *Client, raw json.RawMessage) {
	var data RoomData
	if err := json.Unmarshal(raw, &data); err != nil {
		h.sendError(client, "invalid leave-room payload")
		return
	}

	res, err := h.core.Leave(client.id, data.Room)
	if err != nil {
		h.rejectRoomOp(client, err)
		return
	}

	log.Printf("Participant %s left room %q (%d members)", client.id, res.Room, res.Members)
	ts := timestamp(time.Now())
	h.sendEvent(client.id, EventRoomLeft, RoomLeftPayload{
		Room:      res.Room,
		Message:   "left room " + res.Room,
		Timestamp: ts,
	})
	h.fanOut(presence.RoomExcluding(res.Room, client.id), EventUserLeftRoom, UserRoomPayload{
		ClientID:    client.id,
		Room:        res.Room,
		Message:     "participant left the room",
		Timestamp:   ts,
		RoomMembers: res.Members,
	})
	h.broadcastRoomStats()
}

func (h *Hub) handleRoomMessage(client *Client, raw json.RawMessage) {
	var data RoomMessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		h.sendError(client, "invalid room-message payload")
		return
	}

	room := strings.TrimSpace(data.Room)
	if room == "" {
		h.sendError(client, presence.ErrInvalidRoomName.Error())
		return
	}

	h.core.Touch(client.id)

	// Routing is by recipient membership only: the sender does not need to
	// be in the room it addresses.
	h.fanOut(presence.Room(room), EventRoomMessageBroadcast, RoomMessagePayload{
		Room:      room,
		Text:      data.Text,
		Sender:    data.Sender,
		ClientID:  client.id,
		Timestamp: timestamp(time.Now()),
	})
}

func (h *Hub) handleGetStats(client *Client) {
	h.core.Touch(client.id)
	h.sendEvent(client.id, EventStats, statsPayload(h.core.SnapshotFor(client.id)))
}

// rejectRoomOp answers a failed join/leave. A participant that already
// disconnected gets nothing: the failure is benign and there is nobody left
// to tell.
func (h *Hub) rejectRoomOp(client *Client, err error) {
	if errors.Is(err, presence.ErrNotFound) {
		return
	}
	h.sendError(client, err.Error())
}

func (h *Hub) sendError(client *Client, message string) {
	h.sendEvent(client.id, EventError, ErrorPayload{Message: message})
}

// broadcastRoomStats pushes a fresh aggregate snapshot to every participant.
func (h *Hub) broadcastRoomStats() {
	h.fanOut(presence.Global(), EventRoomStats, roomStatsPayload(h.core.Snapshot()))
}

// sendEvent delivers one frame to a single participant. A missing id means
// the participant disconnected in the meantime; that is a no-op, not an
// error.
func (h *Hub) sendEvent(id string, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Printf("Dropping %s frame for %s: %v", event, id, err)
		return
	}

	client := h.clientByID(id)
	if client == nil {
		return
	}
	if !h.safeSend(client, frame) {
		h.evictClient(client)
	}
}

// fanOut encodes the frame once, resolves the audience through the core, and
// delivers best effort, at most once. Clients whose send buffer is full are
// evicted.
func (h *Hub) fanOut(intent presence.Intent, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Printf("Dropping %s broadcast: %v", event, err)
		return
	}

	var failed []*Client
	for _, id := range h.core.Resolve(intent) {
		client := h.clientByID(id)
		if client == nil {
			continue
		}
		if !h.safeSend(client, frame) {
			failed = append(failed, client)
		}
	}
	for _, client := range failed {
		h.evictClient(client)
	}
}

func (h *Hub) clientByID(id string) *Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[id]
}

// safeSend queues a frame on the client's send channel without blocking.
// It reports false when the client is gone or its buffer is full.
func (h *Hub) safeSend(client *Client, frame []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	current, exists := h.clients[client.id]
	if !exists || current != client || client.closed {
		return false
	}

	select {
	case client.send <- frame:
		return true
	default:
		return false
	}
}

// evictClient drops a connection that can no longer keep up with its frames.
func (h *Hub) evictClient(client *Client) {
	log.Printf("Participant %s from %s removed due to full send buffer", client.id, client.addr)
	h.disconnectClient(client)
	if client.conn != nil {
		_ = client.conn.Close()
	}
}

// shutdownClients closes every active connection during hub shutdown.
// Closing the send channels wakes the write pumps so they exit without
// waiting for the next ping tick.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		client.closed = true
		clients = append(clients, client)
	}
	h.clients = make(map[string]*Client)
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing client connection from %s: %v", client.addr, err)
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown stops the event loop and waits for client goroutines to finish or
// for the timeout, whichever comes first.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
