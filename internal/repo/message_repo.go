// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model: the per-room append-only log, read-receipt mutation, soft deletion,
// and the scan-based unread count.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medichat/go-messaging-backend/internal/domain"
)

// CreateMessageParams carries the write-time fields for a new message.
// SenderName is denormalized at write time so history reads never join on a
// user table.
type CreateMessageParams struct {
	RoomID      string
	SenderID    string
	SenderName  string
	Type        string
	Content     string
	Attachments domain.Attachments
	ReplyTo     *string
	TenantID    string
}

// CreateMessage appends a message to a room's log. The insert runs in a
// transaction that reads the room's latest timestamp first: CreatedAt is
// always strictly greater than the previous message in the same room, so
// (created_at, id) is a total order even when the wall clock stalls.
//
// ReadBy is initialized to {SenderID}: a sender has implicitly read their own
// message.
func CreateMessage(ctx context.Context, db *gorm.DB, p CreateMessageParams) (*domain.Message, error) {
	m := &domain.Message{
		ID:          uuid.NewString(),
		RoomID:      p.RoomID,
		SenderID:    p.SenderID,
		SenderName:  p.SenderName,
		Type:        p.Type,
		Content:     p.Content,
		Attachments: p.Attachments,
		ReplyTo:     p.ReplyTo,
		ReadBy:      domain.NewStringSet(p.SenderID),
		IsDeleted:   false,
		TenantID:    p.TenantID,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last struct{ CreatedAt time.Time }
		now := time.Now().UTC()
		res := tx.Model(&domain.Message{}).
			Select("created_at").
			Where("room_id = ?", p.RoomID).
			Order("created_at desc").
			Limit(1).
			Scan(&last)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 && !now.After(last.CreatedAt) {
			now = last.CreatedAt.Add(time.Microsecond)
		}
		m.CreatedAt = now
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a message by ID (deleted rows included; callers decide
// how to treat the IsDeleted flag). Returns ErrNotFound when absent.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns up to limit non-deleted messages in a room, strictly
// older than before when supplied, in ascending chronological order. The
// query walks the (room_id, created_at) index newest-first and the page is
// reversed before returning so callers always receive chronological order.
func ListMessages(ctx context.Context, db *gorm.DB, roomID, tenantID string, limit int, before *time.Time) ([]domain.Message, error) {
	q := db.WithContext(ctx).
		Where("room_id = ? AND tenant_id = ? AND is_deleted = ?", roomID, tenantID, false).
		Order("created_at desc, id desc")
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var page []domain.Message
	if err := q.Find(&page).Error; err != nil {
		return nil, err
	}

	// Reverse newest-first page into chronological order.
	out := make([]domain.Message, len(page))
	for i, m := range page {
		out[len(page)-1-i] = m
	}
	return out, nil
}

// SoftDeleteMessage flips is_deleted to true. The row is retained; history
// reads and unread counts exclude it. Deleting an already-deleted message
// succeeds without effect, making the operation safe to retry. Returns
// ErrNotFound when the message does not exist.
func SoftDeleteMessage(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", id).
		Update("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendReadBy merges userID into a message's read_by set. The membership
// check and the append happen in one guarded UPDATE, so the row is the unit
// of mutual exclusion: two racing readers serialize on the write and the
// final set is the union of both, never a lost update. Rooms never block
// each other.
//
// It reports whether the set actually grew (false for the sender or a repeat
// reader). Returns ErrNotFound when the message does not exist.
func AppendReadBy(ctx context.Context, db *gorm.DB, messageID, userID string) (bool, error) {
	// json_each re-evaluates membership at write time; the WHERE clause makes
	// the append a no-op when the reader is already present.
	res := db.WithContext(ctx).Exec(
		`UPDATE messages
		    SET read_by = json_insert(read_by, '$[#]', ?)
		  WHERE id = ?
		    AND NOT EXISTS (SELECT 1 FROM json_each(messages.read_by) WHERE value = ?)`,
		userID, messageID, userID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// No row changed: either the reader was already present or the message is
	// missing. Distinguish the two for the caller.
	var count int64
	if err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", messageID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}

// CountUnread returns the number of non-deleted messages whose sender is not
// userID and whose read_by set does not contain userID, optionally scoped to
// one room. The count is recomputed from the receipt sets on every call; no
// cached counter exists to drift. Membership is evaluated on the decoded set
// so the result matches the scan-based definition exactly.
func CountUnread(ctx context.Context, db *gorm.DB, userID, tenantID, roomID string) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("id", "read_by").
		Where("tenant_id = ? AND is_deleted = ? AND sender_id <> ?", tenantID, false, userID)
	if roomID != "" {
		q = q.Where("room_id = ?", roomID)
	}

	var rows []domain.Message
	if err := q.Find(&rows).Error; err != nil {
		return 0, err
	}

	var total int64
	for _, m := range rows {
		if !m.ReadBy.Has(userID) {
			total++
		}
	}
	return total, nil
}
