// Package services – NotificationService
//
// This file implements the NotificationService, which owns the time-ordered
// log of real-time events and their delivery-status lifecycle. Events are
// persisted as "sent" and transition to "delivered" exactly once when the
// delivery boundary confirms client receipt.
//
// MarkDelivered is deliberately fire-and-forget: delivery acknowledgment can
// race with data cleanup, and that race must never surface as a user-visible
// failure, so a missing event is logged and swallowed.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/medichat/go-messaging-backend/internal/domain"
	"github.com/medichat/go-messaging-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRecentLimit caps Recent listings when the caller does not supply one.
const DefaultRecentLimit = 50

// LogEventInput carries the caller-supplied fields for a new event.
type LogEventInput struct {
	EventType          string
	EventCategory      string
	SourceUserID       string
	SourceConnectionID string
	TargetUserID       string
	TargetRoomID       string
	Payload            domain.Payload
	TenantID           string
}

// Publisher pushes a freshly logged event toward connected clients. The push
// is best-effort; delivery is only confirmed by a later MarkDelivered.
type Publisher interface {
	Publish(e *domain.NotificationEvent)
}

// NotificationService implements the use-cases around the event log.
type NotificationService struct {
	// DB is the database handle used for all event operations.
	DB *gorm.DB

	// Pub, when set, receives every logged event for real-time fan-out.
	Pub Publisher
}

// Log validates and persists a new event with status "sent".
// At least one of TargetUserID / TargetRoomID must be set; otherwise
// ErrInvalidTarget.
func (s *NotificationService) Log(ctx context.Context, in LogEventInput) (*domain.NotificationEvent, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Log",
		trace.WithAttributes(
			attribute.String("event.type", in.EventType),
			attribute.String("event.category", in.EventCategory),
		),
	)
	defer span.End()

	if in.TargetUserID == "" && in.TargetRoomID == "" {
		return nil, ErrInvalidTarget
	}

	e, err := repo.CreateEvent(ctx, s.DB, repo.CreateEventParams{
		EventType:          in.EventType,
		EventCategory:      in.EventCategory,
		SourceUserID:       in.SourceUserID,
		SourceConnectionID: in.SourceConnectionID,
		TargetUserID:       in.TargetUserID,
		TargetRoomID:       in.TargetRoomID,
		Payload:            in.Payload,
		TenantID:           in.TenantID,
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if s.Pub != nil {
		s.Pub.Publish(e)
	}
	return e, nil
}

// Recent returns up to limit events targeting userID, newest first.
// An empty slice is not an error.
func (s *NotificationService) Recent(ctx context.Context, userID, tenantID string, limit int) ([]domain.NotificationEvent, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Recent",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	events, err := repo.ListEventsForUser(ctx, s.DB, userID, tenantID, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	return events, nil
}

// MarkDelivered transitions an event to "delivered". The transition is
// one-way and idempotent; marking an already-delivered event succeeds
// without effect. A missing event is logged and swallowed rather than
// returned: delivery confirmation must never block or fail the caller's
// request flow.
func (s *NotificationService) MarkDelivered(ctx context.Context, eventID string) error {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "MarkDelivered",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	if err := repo.MarkEventDelivered(ctx, s.DB, eventID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().
				Str("event_id", eventID).
				Msg("delivery ack for unknown event; ignoring")
			return nil
		}
		return storageErr(err)
	}
	return nil
}
