package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/roomcast/internal/presence"
)

// Envelope is the wire format for every frame in both directions. Data holds
// the event-specific payload and stays raw until the event name is known.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound events accepted from clients. Requests are kebab-case on the wire.
const (
	EventMessage     = "message"
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventRoomMessage = "room-message"
	EventGetStats    = "get-stats"
)

// Outbound events emitted by the server. EventMessage is reused verbatim on
// the way out; an accepted room-message goes out as EventRoomMessageBroadcast.
const (
	EventConnected            = "connected"
	EventUserConnected        = "userConnected"
	EventUserDisconnected     = "userDisconnected"
	EventRoomJoined           = "roomJoined"
	EventUserJoinedRoom       = "userJoinedRoom"
	EventRoomLeft             = "roomLeft"
	EventUserLeftRoom         = "userLeftRoom"
	EventRoomMessageBroadcast = "roomMessage"
	EventRoomStats            = "roomStats"
	EventStats                = "stats"
	EventError                = "error"
)

// MessageData is the inbound payload for a global message.
type MessageData struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// RoomData is the inbound payload for joinRoom and leaveRoom.
type RoomData struct {
	Room string `json:"room"`
}

// RoomMessageData is the inbound payload for a room-scoped message.
type RoomMessageData struct {
	Room   string `json:"room"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// PresencePayload announces a participant arriving or leaving, and doubles
// as the welcome frame for the participant itself.
type PresencePayload struct {
	ClientID    string `json:"clientId"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	OnlineUsers int    `json:"onlineUsers"`
}

// MessagePayload is the outbound form of a global message.
type MessagePayload struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	ClientID  string `json:"clientId"`
	Timestamp string `json:"timestamp"`
}

// RoomJoinedPayload confirms a join to the participant that asked.
type RoomJoinedPayload struct {
	Room        string `json:"room"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	RoomMembers int    `json:"roomMembers"`
}

// RoomLeftPayload confirms a leave to the participant that asked.
type RoomLeftPayload struct {
	Room      string `json:"room"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// UserRoomPayload notifies remaining room members about a join or leave.
type UserRoomPayload struct {
	ClientID    string `json:"clientId"`
	Room        string `json:"room"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	RoomMembers int    `json:"roomMembers"`
}

// RoomMessagePayload is the outbound form of a room-scoped message.
type RoomMessagePayload struct {
	Room      string `json:"room"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	ClientID  string `json:"clientId"`
	Timestamp string `json:"timestamp"`
}

// RoomStatsPayload carries the aggregate occupancy snapshot.
type RoomStatsPayload struct {
	OnlineUsers int            `json:"onlineUsers"`
	Rooms       map[string]int `json:"rooms"`
	Timestamp   string         `json:"timestamp"`
}

// ClientInfoPayload describes the requesting participant inside a stats
// response.
type ClientInfoPayload struct {
	ID           string   `json:"id"`
	ConnectedAt  string   `json:"connectedAt"`
	Rooms        []string `json:"rooms"`
	LastActivity string   `json:"lastActivity"`
}

// StatsPayload answers a getStats request. ClientInfo is omitted when the
// requester is no longer registered.
type StatsPayload struct {
	OnlineUsers int                `json:"onlineUsers"`
	Rooms       map[string]int     `json:"rooms"`
	ClientInfo  *ClientInfoPayload `json:"clientInfo,omitempty"`
	Timestamp   string             `json:"timestamp"`
}

// ErrorPayload tells the sender why its frame was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encodeFrame wraps a payload in the envelope and marshals it.
func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", event, err)
	}
	return frame, nil
}

// timestamp renders an instant the way every payload carries it.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func roomStatsPayload(snap presence.Stats) RoomStatsPayload {
	return RoomStatsPayload{
		OnlineUsers: snap.OnlineUsers,
		Rooms:       snap.Rooms,
		Timestamp:   timestamp(snap.Timestamp),
	}
}

func statsPayload(snap presence.ClientStats) StatsPayload {
	payload := StatsPayload{
		OnlineUsers: snap.OnlineUsers,
		Rooms:       snap.Rooms,
		Timestamp:   timestamp(snap.Timestamp),
	}
	if snap.Client != nil {
		payload.ClientInfo = &ClientInfoPayload{
			ID:           snap.Client.ID,
			ConnectedAt:  timestamp(snap.Client.ConnectedAt),
			Rooms:        snap.Client.Rooms,
			LastActivity: timestamp(snap.Client.LastActivity),
		}
	}
	return payload
}
