// Room HTTP handlers.
//
// This file exposes REST endpoints for room resources:
//   - POST /rooms   (create)
//   - GET  /rooms   (list rooms the current user participates in)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Identity is carried by headers:
// X-User-ID selects the acting user and X-Tenant-ID the tenant scope.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medichat/go-messaging-backend/internal/domain"
	"github.com/medichat/go-messaging-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// RoomService defines room lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RoomService interface {
	// Create starts a new active room with the given type and participant set.
	Create(ctx context.Context, tenantID, createdBy, roomType, name string, participants []string) (*domain.Room, error)
	// ListForUser returns the active rooms containing userID within the tenant.
	ListForUser(ctx context.Context, userID, tenantID string) ([]domain.Room, error)
}

// MessageService defines message append, history, and deletion operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessageService interface {
	// Send appends a message to a room's log.
	Send(ctx context.Context, in services.SendMessageInput) (*domain.Message, error)
	// History returns up to limit non-deleted messages older than before,
	// ascending by creation time.
	History(ctx context.Context, roomID, tenantID string, limit int, before *time.Time) ([]domain.Message, error)
	// Delete soft-deletes a message on behalf of requesterID.
	Delete(ctx context.Context, messageID, requesterID string) error
}

// ReceiptService defines read-receipt and unread-count operations.
type ReceiptService interface {
	// MarkRead records that userID has read messageID.
	MarkRead(ctx context.Context, messageID, userID string) error
	// UnreadCount counts unread messages for userID, optionally per room.
	UnreadCount(ctx context.Context, userID, tenantID, roomID string) (int64, error)
}

// NotificationService defines event log operations.
type NotificationService interface {
	// Log persists a new event with status "sent".
	Log(ctx context.Context, in services.LogEventInput) (*domain.NotificationEvent, error)
	// Recent returns up to limit events targeting userID, newest first.
	Recent(ctx context.Context, userID, tenantID string, limit int) ([]domain.NotificationEvent, error)
	// MarkDelivered transitions an event to "delivered".
	MarkDelivered(ctx context.Context, eventID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for rooms, messages, receipts, and events.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	roomSvc    RoomService
	msgSvc     MessageService
	receiptSvc ReceiptService
	eventSvc   NotificationService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(roomSvc RoomService, msgSvc MessageService, receiptSvc ReceiptService, eventSvc NotificationService) *Handlers {
	return &Handlers{roomSvc: roomSvc, msgSvc: msgSvc, receiptSvc: receiptSvc, eventSvc: eventSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// tenantID extracts the tenant scope from the X-Tenant-ID header. Every read
// and write is tenant-scoped; the fallback keeps single-tenant deployments
// working without extra configuration.
func tenantID(c *gin.Context) string {
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-Tenant-ID")); h != "" {
			return h
		}
	}
	return "default"
}

//
// DTOs
//

// CreateRoomRequest is the JSON payload for creating a room.
type CreateRoomRequest struct {
	// Type is one of: direct, group, support.
	Type string `json:"type" binding:"required" example:"group"`
	// Name optionally sets the room name; a default is used when empty.
	Name string `json:"name" example:"Oncology ward"`
	// Participants is the immutable member set of the room.
	Participants []string `json:"participants" binding:"required,min=1" example:"user123,user456"`
}

// ListRoomsResponse wraps the rooms the current user participates in.
type ListRoomsResponse struct {
	Rooms []domain.Room `json:"rooms"`
}

//
// Handlers
//

// CreateRoom godoc
// @ID          createRoom
// @Summary     Create a new room
// @Description Creates a room for the current tenant and returns the room resource.
// @Description A direct room must have exactly two distinct participants.
// @Tags        Rooms
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID    header  string  false "User ID (demo header)"    example(user123)
// @Param       X-Tenant-ID  header  string  false "Tenant scope"             example(clinic-a)
// @Param       body         body    handlers.CreateRoomRequest  true  "Create room payload"
//
// @Success     201  {object}  domain.Room
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms [post]
func (h *Handlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type and participants required")
		return
	}

	room, err := h.roomSvc.Create(c.Request.Context(), tenantID(c), userID(c), req.Type, req.Name, req.Participants)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRoomType):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type must be one of: direct, group, support")
		case errors.Is(err, services.ErrInvalidParticipants):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid participant set for room type")
		case errors.Is(err, services.ErrStorageUnavailable):
			fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, room)
}

// ListRooms godoc
// @ID          listRooms
// @Summary     List rooms for the current user
// @Description Returns the active rooms whose participant set contains the current user.
// @Tags        Rooms
// @Produce     json
//
// @Param       X-User-ID    header  string  false "User ID (demo header)"  example(user123)
// @Param       X-Tenant-ID  header  string  false "Tenant scope"           example(clinic-a)
//
// @Success     200  {object} handlers.ListRoomsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms [get]
func (h *Handlers) ListRooms(c *gin.Context) {
	rooms, err := h.roomSvc.ListForUser(c.Request.Context(), userID(c), tenantID(c))
	if err != nil {
		if errors.Is(err, services.ErrStorageUnavailable) {
			fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	ok(c, http.StatusOK, ListRoomsResponse{Rooms: rooms})
}
