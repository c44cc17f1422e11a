// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// NotificationEvent model: the time-ordered event log and its delivery
// status lifecycle.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medichat/go-messaging-backend/internal/domain"
)

// CreateEventParams carries the write-time fields for a new notification
// event. At least one of TargetUserID / TargetRoomID must be set; the
// service layer validates that before calling here.
type CreateEventParams struct {
	EventType          string
	EventCategory      string
	SourceUserID       string
	SourceConnectionID string
	TargetUserID       string
	TargetRoomID       string
	Payload            domain.Payload
	TenantID           string
}

// CreateEvent inserts a new event row with status "sent".
func CreateEvent(ctx context.Context, db *gorm.DB, p CreateEventParams) (*domain.NotificationEvent, error) {
	e := &domain.NotificationEvent{
		ID:                 uuid.NewString(),
		EventType:          p.EventType,
		EventCategory:      p.EventCategory,
		SourceUserID:       p.SourceUserID,
		SourceConnectionID: p.SourceConnectionID,
		TargetUserID:       p.TargetUserID,
		TargetRoomID:       p.TargetRoomID,
		Payload:            p.Payload,
		Status:             domain.EventStatusSent,
		TenantID:           p.TenantID,
		CreatedAt:          time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetEvent fetches an event by ID. Returns ErrNotFound when absent.
func GetEvent(ctx context.Context, db *gorm.DB, id string) (*domain.NotificationEvent, error) {
	var e domain.NotificationEvent
	if err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEventsForUser returns up to limit events targeting userID within a
// tenant, newest first. It returns an empty slice when none exist.
func ListEventsForUser(ctx context.Context, db *gorm.DB, userID, tenantID string, limit int) ([]domain.NotificationEvent, error) {
	var out []domain.NotificationEvent
	q := db.WithContext(ctx).
		Where("target_user_id = ? AND tenant_id = ?", userID, tenantID).
		Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// MarkEventDelivered transitions an event from "sent" to "delivered". The
// guarded UPDATE makes the transition one-way and idempotent: a row already
// delivered is left untouched and the call reports success. Returns
// ErrNotFound when the event does not exist at all.
func MarkEventDelivered(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.NotificationEvent{}).
		Where("id = ? AND status = ?", id, domain.EventStatusSent).
		Update("status", domain.EventStatusDelivered)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either already delivered (fine) or missing (ErrNotFound).
		var count int64
		if err := db.WithContext(ctx).
			Model(&domain.NotificationEvent{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}
