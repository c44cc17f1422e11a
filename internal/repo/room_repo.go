// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Room model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a room is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Participant membership lives in a JSON set column; membership filtering is
// done in Go after the tenant/active index scan, which keeps the scan-based
// definition of "rooms for user" the single source of truth.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medichat/go-messaging-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateRoom inserts a new active Room row. The room ID is a randomly
// generated UUID (string), and CreatedAt is set to UTC. Participants are
// stored as a de-duplicated set.
func CreateRoom(ctx context.Context, db *gorm.DB, tenantID, createdBy, roomType, name string, participants []string) (*domain.Room, error) {
	r := &domain.Room{
		ID:           uuid.NewString(),
		Name:         name,
		Type:         roomType,
		Participants: domain.NewStringSet(participants...),
		CreatedBy:    createdBy,
		TenantID:     tenantID,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetActiveRoom fetches a single active room by ID within a tenant. If the
// record does not exist or is inactive, it returns ErrNotFound.
func GetActiveRoom(ctx context.Context, db *gorm.DB, id, tenantID string) (*domain.Room, error) {
	var r domain.Room
	err := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND is_active = ?", id, tenantID, true).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRoomsForUser returns all active rooms within tenantID whose participant
// set contains userID, ordered by creation time descending. Inactive rooms
// are excluded unconditionally. It returns an empty slice when the user has
// no rooms.
func ListRoomsForUser(ctx context.Context, db *gorm.DB, userID, tenantID string) ([]domain.Room, error) {
	var candidates []domain.Room
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("created_at desc").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Room, 0, len(candidates))
	for _, r := range candidates {
		if r.HasParticipant(userID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeactivateRoom flips a room's is_active flag to false. This is the
// administrative path; rooms are never hard-deleted. Returns ErrNotFound when
// the room does not exist in the tenant. Deactivating an already-inactive
// room succeeds without effect.
func DeactivateRoom(ctx context.Context, db *gorm.DB, id, tenantID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
