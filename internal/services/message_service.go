// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of the per-room message log. It validates inputs,
// checks the target room and reply reference, and delegates persistence to
// the repository, which guarantees monotonic per-room ordering.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// room/user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/medichat/go-messaging-backend/internal/domain"
	"github.com/medichat/go-messaging-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultHistoryLimit is the page size used when a caller does not supply one.
const DefaultHistoryLimit = 50

// SendMessageInput carries the caller-supplied fields for a message send.
type SendMessageInput struct {
	RoomID      string
	SenderID    string
	SenderName  string
	Type        string
	Content     string
	Attachments domain.Attachments
	ReplyTo     *string
	TenantID    string
}

// MessagePublisher pushes a freshly persisted message toward connected room
// members. The push is best-effort; history remains the source of truth.
type MessagePublisher interface {
	PublishMessage(m *domain.Message)
}

// MessageService coordinates message persistence, history reads, and soft
// deletion. It holds only the persistence handle; no process-wide state.
type MessageService struct {
	DB *gorm.DB

	// Pub, when set, receives every persisted message for real-time fan-out.
	Pub MessagePublisher

	// MaxContentRunes caps message content length; 0 disables the guard.
	MaxContentRunes int

	// HistoryLimit is the page size used when a caller does not supply one;
	// 0 falls back to DefaultHistoryLimit.
	HistoryLimit int

	// IdempotencyTTL bounds how long a recorded Idempotency-Key replays;
	// 0 falls back to the transport layer's default.
	IdempotencyTTL time.Duration
}

// Send validates the room and optional reply reference, then appends the
// message to the room's log. The persisted message is returned with
// read_by = {sender} and a timestamp strictly after the room's previous
// message.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("room.id", in.RoomID),
			attribute.String("user.id", in.SenderID),
		),
	)
	defer span.End()

	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(in.Content) > s.MaxContentRunes {
		return nil, ErrTooLong
	}
	if in.Type == "" {
		in.Type = domain.MessageTypeText
	}
	if !domain.ValidMessageType(in.Type) {
		return nil, ErrInvalidMessageType
	}

	// The room must exist, be active, and belong to the tenant.
	if _, err := repo.GetActiveRoom(ctx, s.DB, in.RoomID, in.TenantID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, storageErr(err)
	}

	// A reply must reference an existing, non-deleted message in the same room.
	if in.ReplyTo != nil && *in.ReplyTo != "" {
		parent, err := repo.GetMessage(ctx, s.DB, *in.ReplyTo)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrInvalidReply
			}
			return nil, storageErr(err)
		}
		if parent.IsDeleted || parent.RoomID != in.RoomID {
			return nil, ErrInvalidReply
		}
	}

	m, err := repo.CreateMessage(ctx, s.DB, repo.CreateMessageParams{
		RoomID:      in.RoomID,
		SenderID:    in.SenderID,
		SenderName:  in.SenderName,
		Type:        in.Type,
		Content:     in.Content,
		Attachments: in.Attachments,
		ReplyTo:     in.ReplyTo,
		TenantID:    in.TenantID,
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if s.Pub != nil {
		s.Pub.PublishMessage(m)
	}
	return m, nil
}

// History returns up to limit non-deleted messages in the room, strictly
// older than before when supplied, in ascending chronological order.
// A limit <= 0 falls back to the configured HistoryLimit (or
// DefaultHistoryLimit); the transport layer is expected to enforce its own
// ceiling.
func (s *MessageService) History(ctx context.Context, roomID, tenantID string, limit int, before *time.Time) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		limit = s.HistoryLimit
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	msgs, err := repo.ListMessages(ctx, s.DB, roomID, tenantID, limit, before)
	if err != nil {
		return nil, storageErr(err)
	}
	return msgs, nil
}

// Delete soft-deletes a message on behalf of requesterID. Only the sender may
// delete their own message. The operation is idempotent: deleting an
// already-deleted message succeeds without effect, so a retry after a
// timeout is always safe.
func (s *MessageService) Delete(ctx context.Context, messageID, requesterID string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("user.id", requesterID),
		),
	)
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.GetMessage(ctx, tx, messageID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrMessageNotFound
			}
			return storageErr(err)
		}
		if m.SenderID != requesterID {
			return ErrUnauthorized
		}
		if m.IsDeleted {
			return nil
		}
		if err := repo.SoftDeleteMessage(ctx, tx, messageID); err != nil {
			return storageErr(err)
		}
		return nil
	})
}
