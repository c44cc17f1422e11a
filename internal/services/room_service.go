// Package services – RoomService
//
// This file implements the RoomService, which manages the lifecycle of rooms.
// It validates participant sets against the room type, normalizes and clips
// room names, and coordinates repository operations for creating and listing
// rooms. Membership is immutable after creation; deactivation is an
// administrative action that goes straight to the repository.
//
// Service-level errors (e.g., ErrInvalidParticipants) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/medichat/go-messaging-backend/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoomRepo defines the repository contract required by RoomService.
// Implementations are responsible for persistence of room aggregates.
type RoomRepo interface {
	// CreateRoom inserts a new active room row.
	CreateRoom(ctx context.Context, db *gorm.DB, tenantID, createdBy, roomType, name string, participants []string) (*domain.Room, error)

	// GetActiveRoom fetches an active room by ID within a tenant.
	GetActiveRoom(ctx context.Context, db *gorm.DB, id, tenantID string) (*domain.Room, error)

	// ListRoomsForUser returns the active rooms containing userID in a tenant.
	ListRoomsForUser(ctx context.Context, db *gorm.DB, userID, tenantID string) ([]domain.Room, error)
}

// RoomService provides room-level operations such as creating and listing
// rooms. It enforces participant rules per room type and normalizes names.
type RoomService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the room repository used by this service.
	Repo RoomRepo

	// NameMaxLen caps stored room names by rune length.
	NameMaxLen int
	// NameLocale selects the locale used when normalizing names.
	NameLocale language.Tag
}

// NewRoomService constructs a RoomService with sane defaults for name handling.
func NewRoomService(db *gorm.DB, r RoomRepo) *RoomService {
	return &RoomService{
		DB:         db,
		Repo:       r,
		NameMaxLen: 120,
		NameLocale: language.Und,
	}
}

// Create validates and persists a new active room.
//
// Rules:
//   - participants must be non-empty (after de-duplication).
//   - a direct room must have exactly 2 distinct participants.
//   - group/support rooms get a normalized, title-cased name per NameLocale;
//     blank falls back to "New Room".
func (s *RoomService) Create(ctx context.Context, tenantID, createdBy, roomType, name string, participants []string) (*domain.Room, error) {
	if !domain.ValidRoomType(roomType) {
		return nil, ErrInvalidRoomType
	}

	set := domain.NewStringSet(participants...)
	if len(set) == 0 {
		return nil, ErrInvalidParticipants
	}
	if roomType == domain.RoomTypeDirect && len(set) != 2 {
		return nil, ErrInvalidParticipants
	}

	name = normalizeName(name)
	if roomType != domain.RoomTypeDirect {
		if name == "" {
			name = "New room"
		}
		name = cases.Title(s.NameLocaleOrDefault()).String(name)
	}

	room, err := s.Repo.CreateRoom(ctx, s.DB, tenantID, createdBy, roomType, s.clip(name), set)
	if err != nil {
		return nil, storageErr(err)
	}
	return room, nil
}

// ListForUser returns all active rooms in the tenant whose participant set
// contains userID. Pure read; an empty slice is not an error.
func (s *RoomService) ListForUser(ctx context.Context, userID, tenantID string) ([]domain.Room, error) {
	rooms, err := s.Repo.ListRoomsForUser(ctx, s.DB, userID, tenantID)
	if err != nil {
		return nil, storageErr(err)
	}
	return rooms, nil
}

// NameLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *RoomService) NameLocaleOrDefault() language.Tag {
	if s.NameLocale == language.Und {
		return language.English
	}
	return s.NameLocale
}

// clip truncates a room name to the configured maximum rune length.
func (s *RoomService) clip(name string) string {
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		return string([]rune(name)[:s.NameMaxLen])
	}
	return name
}

// normalizeName trims whitespace and collapses multiple spaces to one.
func normalizeName(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
