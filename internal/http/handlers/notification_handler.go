// Notification event HTTP handlers.
//
// This file exposes REST endpoints for the notification event log:
//   - POST /events                 (append an event, status "sent")
//   - GET  /events                 (recent events targeting the current user)
//   - POST /events/{id}/delivered  (acknowledge delivery)
//
// Events record that a real-time signal was emitted toward a user or room;
// the delivered acknowledgment is one-way and idempotent, so clients may
// retry it freely.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medichat/go-messaging-backend/internal/domain"
	"github.com/medichat/go-messaging-backend/internal/services"
	"github.com/medichat/go-messaging-backend/internal/utils"
)

//
// DTOs
//

// PostEventRequest is the JSON payload for logging a notification event.
type PostEventRequest struct {
	// EventType names the concrete signal, e.g. "message.new".
	EventType string `json:"event_type" binding:"required,min=1" example:"message.new"`
	// EventCategory groups related event types, e.g. "chat".
	EventCategory string `json:"event_category" example:"chat"`
	// TargetUserID addresses a single user. One of target_user_id /
	// target_room_id must be set.
	TargetUserID string `json:"target_user_id" example:"user456"`
	// TargetRoomID addresses every participant of a room.
	TargetRoomID string `json:"target_room_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// SourceConnectionID optionally names the originating connection.
	SourceConnectionID string `json:"source_connection_id"`
	// Payload carries event-specific data, stored verbatim.
	Payload domain.Payload `json:"payload,omitempty"`
}

// ListEventsResponse wraps recent events targeting the current user.
type ListEventsResponse struct {
	Events []domain.NotificationEvent `json:"events"`
}

//
// Handlers
//

// PostEvent godoc
// @ID          postEvent
// @Summary     Log a notification event
// @Description Appends an event to the notification log with status "sent".
// @Tags        Events
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID    header  string  false "Source user ID"  example(user123)
// @Param       X-Tenant-ID  header  string  false "Tenant scope"    example(clinic-a)
// @Param       body         body    handlers.PostEventRequest  true  "Event payload"
//
// @Success     201  {object}  domain.NotificationEvent
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /events [post]
func (h *Handlers) PostEvent(c *gin.Context) {
	var req PostEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event_type required")
		return
	}

	e, err := h.eventSvc.Log(c.Request.Context(), services.LogEventInput{
		EventType:          req.EventType,
		EventCategory:      req.EventCategory,
		SourceUserID:       userID(c),
		SourceConnectionID: req.SourceConnectionID,
		TargetUserID:       req.TargetUserID,
		TargetRoomID:       req.TargetRoomID,
		Payload:            req.Payload,
		TenantID:           tenantID(c),
	})
	if err != nil {
		switch err {
		case services.ErrInvalidTarget:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "one of target_user_id or target_room_id required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, e)
}

// ListEvents godoc
// @ID          listEvents
// @Summary     Recent events for the current user
// @Description Returns up to `limit` events targeting the current user, newest first.
// @Tags        Events
// @Produce     json
//
// @Param       X-User-ID    header  string  true  "Target user ID"  example(user456)
// @Param       X-Tenant-ID  header  string  false "Tenant scope"    example(clinic-a)
// @Param       limit        query   int     false "Maximum events"  minimum(1) default(50)
//
// @Success     200  {object} handlers.ListEventsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /events [get]
func (h *Handlers) ListEvents(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), services.DefaultRecentLimit)

	events, err := h.eventSvc.Recent(c.Request.Context(), userID(c), tenantID(c), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if events == nil {
		events = []domain.NotificationEvent{}
	}
	ok(c, http.StatusOK, ListEventsResponse{Events: events})
}

// AckEventDelivered godoc
// @ID          ackEventDelivered
// @Summary     Acknowledge event delivery
// @Description Transitions the event from "sent" to "delivered". The transition
// @Description is one-way and idempotent; acknowledging an unknown event is ignored.
// @Tags        Events
// @Produce     json
//
// @Param       id  path  string  true  "Event ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /events/{id}/delivered [post]
func (h *Handlers) AckEventDelivered(c *gin.Context) {
	eventID := c.Param("id")
	if _, err := uuid.Parse(eventID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "event id must be a UUID")
		return
	}

	if err := h.eventSvc.MarkDelivered(c.Request.Context(), eventID); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
