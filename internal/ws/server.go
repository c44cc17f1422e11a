package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/medichat/go-messaging-backend/internal/domain"
)

// RoomLister verifies membership: a user may only attach to rooms whose
// participant set contains them. Implemented by services.RoomService.
type RoomLister interface {
	ListForUser(ctx context.Context, userID, tenantID string) ([]domain.Room, error)
}

// Acker records delivery confirmations. Implemented by
// services.NotificationService.
type Acker interface {
	MarkDelivered(ctx context.Context, eventID string) error
}

// Server upgrades HTTP requests into hub connections and runs the per-client
// read/write loops. Delivered acks received from clients are forwarded to the
// Acker so the event log's status lifecycle advances.
type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	rooms    RoomLister
	acker    Acker

	pingEvery time.Duration
}

// NewServer builds a Server. allowedOrigins restricts the Origin header
// accepted during the upgrade; empty means same-origin only (the
// gorilla/websocket default check).
func NewServer(hub *Hub, rooms RoomLister, acker Acker, allowedOrigins []string) *Server {
	s := &Server{
		hub:       hub,
		rooms:     rooms,
		acker:     acker,
		pingEvery: 15 * time.Second,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[strings.ToLower(strings.TrimSpace(o))] = struct{}{}
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := strings.ToLower(r.Header.Get("Origin"))
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return s
}

// Hub exposes the server's connection index so other components can publish.
func (s *Server) Hub() *Hub { return s.hub }

// Publish fans an event out to its target: the user's connections when
// TargetUserID is set, otherwise every connection in TargetRoomID.
// Fire-and-forget; clients confirm receipt with delivered frames.
func (s *Server) Publish(e *domain.NotificationEvent) {
	if e == nil {
		return
	}
	msg := Message{Type: TypeEvent, Payload: EventPayload{Event: e}}
	if e.TargetUserID != "" {
		s.hub.SendToUser(e.TargetUserID, msg)
		return
	}
	if e.TargetRoomID != "" {
		s.hub.BroadcastRoom(e.TargetRoomID, msg)
	}
}

// PublishMessage fans a freshly persisted room message out to every
// connection attached to its room. Fire-and-forget.
func (s *Server) PublishMessage(m *domain.Message) {
	if m == nil || m.RoomID == "" {
		return
	}
	s.hub.BroadcastRoom(m.RoomID, Message{Type: TypeMessage, Payload: MessagePayload{Message: m}})
}

// HandleWS implements GET /ws?room_id=. The caller must be a participant of
// the room; identity comes from the X-User-ID / X-Tenant-ID headers the rest
// of the API uses.
func (s *Server) HandleWS(c *gin.Context) {
	roomID := strings.TrimSpace(c.Query("room_id"))
	if roomID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "room_id required",
		})
		return
	}

	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		userID = "demo-user"
	}
	tenantID := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
	if tenantID == "" {
		tenantID = "default"
	}

	if !s.isMember(c.Request.Context(), roomID, userID, tenantID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    "forbidden",
			"message": "not a participant of this room",
		})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("ws upgrade failed")
		return
	}

	wc := newWSConn(conn, roomID, userID)
	s.hub.Add(wc)
	s.hub.BroadcastRoom(roomID, Message{
		Type:    TypePeerJoined,
		Payload: PeerEventPayload{RoomID: roomID, UserID: userID},
	})

	go s.writeLoop(wc)
	s.readLoop(c.Request.Context(), wc)

	s.hub.Remove(wc)
	s.hub.BroadcastRoom(roomID, Message{
		Type:    TypePeerLeft,
		Payload: PeerEventPayload{RoomID: roomID, UserID: userID},
	})
	_ = wc.Close()
}

func (s *Server) isMember(ctx context.Context, roomID, userID, tenantID string) bool {
	rooms, err := s.rooms.ListForUser(ctx, userID, tenantID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("ws membership check failed")
		return false
	}
	for i := range rooms {
		if rooms[i].ID == roomID {
			return true
		}
	}
	return false
}

// readLoop consumes client frames until the connection drops. The only frame
// a client may send is a delivered ack; everything else is ignored.
func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != TypeDelivered {
			continue
		}
		var p DeliveredPayload
		if decode(msg.Payload, &p) != nil || strings.TrimSpace(p.EventID) == "" {
			continue
		}
		if s.acker != nil {
			if err := s.acker.MarkDelivered(ctx, p.EventID); err != nil {
				log.Warn().Err(err).Str("event_id", p.EventID).Msg("ws delivered ack failed")
			}
		}
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

// decode remarshals an envelope payload into a concrete frame struct.
func decode(payload any, dst any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// wsConn wraps a gorilla connection with a per-connection write lock, since
// gorilla/websocket permits only one concurrent writer.
type wsConn struct {
	conn   *websocket.Conn
	roomID string
	userID string
	sendMu chan struct{}
	closed chan struct{}
}

func newWSConn(c *websocket.Conn, roomID, userID string) *wsConn {
	return &wsConn{
		conn:   c,
		roomID: roomID,
		userID: userID,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return c.conn.Close()
}

func (c *wsConn) UserID() string { return c.userID }
func (c *wsConn) RoomID() string { return c.roomID }
