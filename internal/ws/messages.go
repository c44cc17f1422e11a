// Package ws implements the WebSocket delivery boundary: connected clients
// receive notification events as JSON frames and confirm receipt with
// delivered acknowledgments.
package ws

import "github.com/medichat/go-messaging-backend/internal/domain"

// Frame types exchanged over a connection.
const (
	// TypeEvent carries a notification event from server to client.
	TypeEvent = "event"
	// TypeMessage carries a newly persisted room message to room members.
	TypeMessage = "message"
	// TypeDelivered is the client's acknowledgment that an event frame
	// reached it. Payload: DeliveredPayload.
	TypeDelivered = "delivered"
	// TypePeerJoined / TypePeerLeft announce room presence changes.
	TypePeerJoined = "peer_joined"
	TypePeerLeft   = "peer_left"
)

// Message is the envelope for every frame on the wire.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EventPayload wraps the event pushed to the client.
type EventPayload struct {
	Event *domain.NotificationEvent `json:"event"`
}

// MessagePayload wraps the room message pushed to the client.
type MessagePayload struct {
	Message *domain.Message `json:"message"`
}

// DeliveredPayload identifies the event a client confirms as received.
type DeliveredPayload struct {
	EventID string `json:"event_id"`
}

// PeerEventPayload announces a presence change within a room.
type PeerEventPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}
