// Package services defines the business logic for rooms, messages, read
// receipts, and notification events. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Domain errors. All are surfaced to the immediate caller; the core never
// retries internally because every mutation is idempotent or safely
// re-issuable.
var (
	// ErrRoomNotFound indicates that the requested room does not exist, is
	// inactive, or belongs to another tenant.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidParticipants is returned when a room is created with an empty
	// participant set, or a direct room with a participant count other than 2.
	ErrInvalidParticipants = errors.New("invalid participants")

	// ErrInvalidReply is returned when a message replies to a message that
	// does not exist, is deleted, or lives in a different room.
	ErrInvalidReply = errors.New("invalid reply reference")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrUnauthorized is returned when a requester attempts an operation on a
	// message they do not own (currently: deletion by a non-sender).
	ErrUnauthorized = errors.New("not allowed")

	// ErrInvalidTarget is returned when a notification event names neither a
	// target user nor a target room.
	ErrInvalidTarget = errors.New("event target required")

	// ErrInvalidRoomType is returned when a room is created with an unknown type.
	ErrInvalidRoomType = errors.New("invalid room type")

	// ErrInvalidMessageType is returned when a send names an unknown message type.
	ErrInvalidMessageType = errors.New("invalid message type")

	// ErrEmptyContent is returned when a send carries no content.
	ErrEmptyContent = errors.New("content is empty")

	// ErrTooLong is returned when message content exceeds the configured
	// maximum length limit.
	ErrTooLong = errors.New("content too long")
)

// ErrStorageUnavailable signals a persistence-layer fault (connectivity,
// timeout). It is distinct from the domain errors above: the operation's
// effect is unknown and callers must check state before retrying mutations.
var ErrStorageUnavailable = errors.New("storage unavailable")

// storageErr wraps an unexpected persistence error so callers can match it
// with errors.Is(err, ErrStorageUnavailable) while retaining the cause.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
