package ws

import (
	"sync"
)

// Conn is the hub's view of a connected client. Implementations must be safe
// for concurrent Send calls.
type Conn interface {
	Send(msg Message) error
	Close() error
	UserID() string
	RoomID() string
}

// Hub indexes live connections by room and by user so events can be fanned
// out to either target kind. All methods are safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // roomID -> set of connections
	users map[string]map[Conn]struct{} // userID -> set of connections
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[Conn]struct{}),
		users: make(map[string]map[Conn]struct{}),
	}
}

// Add registers a connection under its room and user.
func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[c.RoomID()]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[c.RoomID()] = rs
	}
	rs[c] = struct{}{}

	us, ok := h.users[c.UserID()]
	if !ok {
		us = make(map[Conn]struct{})
		h.users[c.UserID()] = us
	}
	us[c] = struct{}{}
}

// Remove drops a connection from both indexes.
func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[c.RoomID()]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, c.RoomID())
		}
	}
	if us, ok := h.users[c.UserID()]; ok {
		delete(us, c)
		if len(us) == 0 {
			delete(h.users, c.UserID())
		}
	}
}

// BroadcastRoom sends a frame to every connection in the room, best-effort.
func (h *Hub) BroadcastRoom(roomID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[roomID]; ok {
		for c := range rs {
			_ = c.Send(msg)
		}
	}
}

// SendToUser sends a frame to every connection of one user, best-effort.
// Returns the number of connections that accepted the frame.
func (h *Hub) SendToUser(userID string, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	if us, ok := h.users[userID]; ok {
		for c := range us {
			if err := c.Send(msg); err == nil {
				n++
			}
		}
	}
	return n
}
