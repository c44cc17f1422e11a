// Package services – ReceiptService
//
// This file implements the ReceiptService, which governs per-message read
// receipts and the derived unread counts. Marking a message read is a
// set-union append scoped to the single message row, so racing readers never
// lose each other's receipt; the unread count is recomputed from the receipt
// sets on every call rather than maintained as a counter that could drift.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/medichat/go-messaging-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReceiptService implements the use-cases around read receipts.
type ReceiptService struct {
	// DB is the database handle used for all receipt operations.
	DB *gorm.DB
}

// MarkRead records that userID has read messageID.
//
// Semantics:
//   - messageID must exist; otherwise ErrMessageNotFound.
//   - If userID is already in read_by (including the sender), the call is a
//     no-op and still succeeds, so retries after a timeout are safe.
//   - Concurrent calls for the same message from different readers serialize
//     on the message row; the final read_by is the union of all submitted
//     readers regardless of interleaving.
func (s *ReceiptService) MarkRead(ctx context.Context, messageID, userID string) error {
	tr := otel.Tracer("services/ReceiptService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if _, err := repo.AppendReadBy(ctx, s.DB, messageID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMessageNotFound
		}
		return storageErr(err)
	}
	return nil
}

// UnreadCount returns the number of non-deleted messages not yet read by
// userID, excluding the user's own messages, optionally scoped to one room.
// The value is derived by a scan over the receipt sets; it stays correct in
// a horizontally-scaled deployment because the store is the only shared
// state.
func (s *ReceiptService) UnreadCount(ctx context.Context, userID, tenantID, roomID string) (int64, error) {
	tr := otel.Tracer("services/ReceiptService")
	ctx, span := tr.Start(ctx, "UnreadCount",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("room.id", roomID),
		),
	)
	defer span.End()

	n, err := repo.CountUnread(ctx, s.DB, userID, tenantID, roomID)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}
