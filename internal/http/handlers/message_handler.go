// Message HTTP handlers.
//
// This file exposes REST endpoints for the per-room message log and the
// read-receipt tracker:
//   - POST   /rooms/{id}/messages   (append a message to the room's log)
//   - GET    /rooms/{id}/messages   (history window, cursor-paginated)
//   - POST   /messages/{id}/read    (record a read receipt)
//   - DELETE /messages/{id}         (soft-delete, sender only)
//   - GET    /unread                (derived unread count)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (MessageService, ReceiptService)
//   - implement idempotency semantics for sends
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, room, key), the handler returns that recorded
// message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medichat/go-messaging-backend/internal/domain"
	"github.com/medichat/go-messaging-backend/internal/repo"
	"github.com/medichat/go-messaging-backend/internal/services"
	"github.com/medichat/go-messaging-backend/internal/utils"
)

//
// DTOs
//

// SendMessageRequest is the JSON payload for appending a message to a room.
//
// Content is normalized by the handler (line endings and excessive blank lines)
// before being passed to the service layer. The service also enforces a
// maximum rune count, which can be configured in MessageService.
type SendMessageRequest struct {
	// Content is the message body. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Patient in room 4 is ready for discharge"`
	// Type is one of: text, image, file, system. Defaults to text.
	Type string `json:"type" example:"text"`
	// SenderName is the display name recorded alongside the message.
	SenderName string `json:"sender_name" example:"Dr. Adams"`
	// Attachments carries optional attachment descriptors.
	Attachments domain.Attachments `json:"attachments,omitempty"`
	// ReplyTo optionally references another message in the same room.
	ReplyTo *string `json:"reply_to,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// SendMessageResponse is the JSON envelope for a newly appended message.
type SendMessageResponse struct {
	// Message is the persisted message, including its assigned timestamp.
	Message *domain.Message `json:"message"`
}

// HistoryResponse contains a window of room messages in ascending order.
type HistoryResponse struct {
	Messages []domain.Message `json:"messages"`
	// Limit echoes the effective page size after clamping.
	Limit int `json:"limit"`
}

// UnreadResponse reports the derived unread count for the current user.
type UnreadResponse struct {
	UserID string `json:"user_id"`
	RoomID string `json:"room_id,omitempty"`
	Unread int64  `json:"unread"`
}

//
// Helpers
//

// clampHistoryLimit parses limit from query parameters, applies def when
// absent and the hard ceiling, and returns the validated page size.
func clampHistoryLimit(c *gin.Context, def int) int {
	const maxLimit = 200
	limit := utils.AtoiDefault(c.Query("limit"), def)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// parseBefore reads the optional `before` cursor (RFC 3339, nanosecond
// precision accepted) used to page into older history.
func parseBefore(c *gin.Context) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query("before"))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxContentRunes inspects the concrete MessageService for a
// configured content-length limit. If unavailable, it returns a conservative
// fallback.
func discoverMaxContentRunes(msgSvc MessageService) int {
	const fallback = 4000
	if ms, ok := msgSvc.(*services.MessageService); ok {
		if ms.MaxContentRunes > 0 {
			return ms.MaxContentRunes
		}
	}
	return fallback
}

// discoverHistoryDefault mirrors discoverMaxContentRunes for the default
// history page size.
func discoverHistoryDefault(msgSvc MessageService) int {
	if ms, ok := msgSvc.(*services.MessageService); ok {
		if ms.HistoryLimit > 0 {
			return ms.HistoryLimit
		}
	}
	return services.DefaultHistoryLimit
}

//
// Handlers
//

// SendMessage godoc
// @ID          sendMessage
// @Summary     Append a message to a room
// @Description Appends a message to the room's log and returns the persisted resource.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Sender user ID"              example(user123)
// @Param       X-Tenant-ID      header  string  false "Tenant scope"                example(clinic-a)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Room ID (UUID)"              format(uuid)
// @Param       body             body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.SendMessageResponse  "Persisted message"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse        "Room not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /rooms/{id}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("id")

	if _, err := uuid.Parse(roomID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "room id must be a UUID")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	content := sanitizeContent(req.Content)
	maxRunes := discoverMaxContentRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(content) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	}
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, roomID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(ctx, svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, SendMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	// Normal processing (service has a second guard for length).
	m, err := h.msgSvc.Send(ctx, services.SendMessageInput{
		RoomID:      roomID,
		SenderID:    currentUser,
		SenderName:  strings.TrimSpace(req.SenderName),
		Type:        req.Type,
		Content:     content,
		Attachments: req.Attachments,
		ReplyTo:     req.ReplyTo,
		TenantID:    tenantID(c),
	})
	if err != nil {
		switch err {
		case services.ErrRoomNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		case services.ErrInvalidReply:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reply_to must reference a live message in the same room")
		case services.ErrInvalidMessageType:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type must be one of: text, image, file, system")
		case services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		case services.ErrEmptyContent:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, ok := h.msgSvc.(*services.MessageService); ok && svc.DB != nil {
			ttl := svc.IdempotencyTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, roomID, idemKey, m.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, SendMessageResponse{Message: m})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     Read a room's message history
// @Description Returns the most recent messages in ascending order. Use `before`
// @Description (RFC 3339) with the oldest returned timestamp to page further back.
// @Tags        Messages
// @Produce     json
//
// @Param       X-Tenant-ID  header string  false "Tenant scope"                example(clinic-a)
// @Param       id           path   string  true  "Room ID (UUID)"              format(uuid)
// @Param       limit        query  int     false "Window size"                 minimum(1) maximum(200) default(50)
// @Param       before       query  string  false "Exclusive upper bound (RFC 3339 timestamp)"
//
// @Success     200  {object} handlers.HistoryResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("id")

	if _, err := uuid.Parse(roomID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "room id must be a UUID")
		return
	}

	before, err := parseBefore(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "before must be an RFC 3339 timestamp")
		return
	}
	limit := clampHistoryLimit(c, discoverHistoryDefault(h.msgSvc))

	msgs, err := h.msgSvc.History(ctx, roomID, tenantID(c), limit, before)
	if err != nil {
		if errors.Is(err, services.ErrStorageUnavailable) {
			fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	ok(c, http.StatusOK, HistoryResponse{Messages: msgs, Limit: limit})
}

// MarkMessageRead godoc
// @ID          markMessageRead
// @Summary     Record a read receipt
// @Description Adds the current user to the message's read set. Re-reading is a no-op.
// @Tags        Receipts
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Reader user ID"     example(user456)
// @Param       id         path    string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id}/read [post]
func (h *Handlers) MarkMessageRead(c *gin.Context) {
	messageID := c.Param("id")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	if err := h.receiptSvc.MarkRead(c.Request.Context(), messageID, userID(c)); err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a message
// @Description Soft-deletes a message. Only the original sender may delete it;
// @Description deleting an already-deleted message succeeds without effect.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Requester user ID"  example(user123)
// @Param       id         path    string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the sender"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	messageID := c.Param("id")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	if err := h.msgSvc.Delete(c.Request.Context(), messageID, userID(c)); err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		case services.ErrUnauthorized:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the sender may delete a message")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// GetUnread godoc
// @ID          getUnread
// @Summary     Unread message count
// @Description Returns the number of messages not yet read by the current user,
// @Description optionally scoped to one room via ?room_id=.
// @Tags        Receipts
// @Produce     json
//
// @Param       X-User-ID    header  string  true  "User ID"        example(user456)
// @Param       X-Tenant-ID  header  string  false "Tenant scope"   example(clinic-a)
// @Param       room_id      query   string  false "Room ID (UUID)" format(uuid)
//
// @Success     200  {object} handlers.UnreadResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /unread [get]
func (h *Handlers) GetUnread(c *gin.Context) {
	roomID := strings.TrimSpace(c.Query("room_id"))
	if roomID != "" {
		if _, err := uuid.Parse(roomID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "room_id must be a UUID")
			return
		}
	}

	uid := userID(c)
	n, err := h.receiptSvc.UnreadCount(c.Request.Context(), uid, tenantID(c), roomID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, UnreadResponse{UserID: uid, RoomID: roomID, Unread: n})
}

// middlewareGetIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}
