package services

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/medichat/go-messaging-backend/internal/domain"
	"golang.org/x/text/language"
)

// ----- Fake repo -----

type fakeRoomRepo struct {
	// capture args
	createTenantID  string
	createCreatedBy string
	createType      string
	createName      string
	createParts     []string
	createErr       error

	listUserID   string
	listTenantID string
	listRooms    []domain.Room
	listErr      error
}

func (r *fakeRoomRepo) CreateRoom(ctx context.Context, db *gorm.DB, tenantID, createdBy, roomType, name string, participants []string) (*domain.Room, error) {
	r.createTenantID, r.createCreatedBy = tenantID, createdBy
	r.createType, r.createName = roomType, name
	r.createParts = participants
	if r.createErr != nil {
		return nil, r.createErr
	}
	return &domain.Room{
		ID:           "r1",
		Name:         name,
		Type:         roomType,
		Participants: domain.NewStringSet(participants...),
		CreatedBy:    createdBy,
		TenantID:     tenantID,
		IsActive:     true,
	}, nil
}

func (r *fakeRoomRepo) GetActiveRoom(ctx context.Context, db *gorm.DB, id, tenantID string) (*domain.Room, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoomRepo) ListRoomsForUser(ctx context.Context, db *gorm.DB, userID, tenantID string) ([]domain.Room, error) {
	r.listUserID, r.listTenantID = userID, tenantID
	return r.listRooms, r.listErr
}

// ----- Tests -----

func TestNewRoomService_Defaults(t *testing.T) {
	r := &fakeRoomRepo{}
	s := NewRoomService(nil, r)

	if s.Repo != r {
		t.Fatalf("repo not set")
	}
	if s.NameMaxLen != 120 {
		t.Fatalf("NameMaxLen default = 120, got %d", s.NameMaxLen)
	}
	if s.NameLocale != language.Und {
		t.Fatalf("NameLocale default = Und, got %v", s.NameLocale)
	}
}

func TestRoomService_Create_InvalidType(t *testing.T) {
	s := NewRoomService(nil, &fakeRoomRepo{})
	_, err := s.Create(context.Background(), "t1", "u1", "broadcast", "x", []string{"u1", "u2"})
	if !errors.Is(err, ErrInvalidRoomType) {
		t.Fatalf("expected ErrInvalidRoomType, got %v", err)
	}
}

func TestRoomService_Create_EmptyParticipants(t *testing.T) {
	s := NewRoomService(nil, &fakeRoomRepo{})
	_, err := s.Create(context.Background(), "t1", "u1", domain.RoomTypeGroup, "team", nil)
	if !errors.Is(err, ErrInvalidParticipants) {
		t.Fatalf("expected ErrInvalidParticipants, got %v", err)
	}
}

func TestRoomService_Create_DirectRequiresExactlyTwo(t *testing.T) {
	s := NewRoomService(nil, &fakeRoomRepo{})

	for _, parts := range [][]string{
		{"a"},
		{"a", "b", "c"},
		{"a", "a"}, // duplicates collapse to one
	} {
		if _, err := s.Create(context.Background(), "t1", "a", domain.RoomTypeDirect, "", parts); !errors.Is(err, ErrInvalidParticipants) {
			t.Errorf("participants %v: expected ErrInvalidParticipants, got %v", parts, err)
		}
	}

	if _, err := s.Create(context.Background(), "t1", "a", domain.RoomTypeDirect, "", []string{"a", "b"}); err != nil {
		t.Fatalf("two participants must succeed, got %v", err)
	}
}

func TestRoomService_Create_NormalizesAndDefaultsName(t *testing.T) {
	r := &fakeRoomRepo{}
	s := NewRoomService(nil, r)

	// Whitespace collapses and the locale caser title-cases the result.
	if _, err := s.Create(context.Background(), "t1", "u1", domain.RoomTypeGroup, "  ops   TEAM ", []string{"u1", "u2"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.createName != "Ops Team" {
		t.Fatalf("name not normalized and cased: %q", r.createName)
	}

	if _, err := s.Create(context.Background(), "t1", "u1", domain.RoomTypeSupport, "   ", []string{"u1", "u2"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.createName != "New Room" {
		t.Fatalf("blank group name must fall back, got %q", r.createName)
	}

	// Direct rooms keep the caller's name untouched beyond whitespace cleanup.
	if _, err := s.Create(context.Background(), "t1", "a", domain.RoomTypeDirect, " dm with bob ", []string{"a", "b"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.createName != "dm with bob" {
		t.Fatalf("direct room name must not be cased: %q", r.createName)
	}
}

func TestRoomService_NameLocaleOrDefault(t *testing.T) {
	s := NewRoomService(nil, &fakeRoomRepo{})
	if s.NameLocaleOrDefault() != language.English {
		t.Fatalf("unset locale must fall back to English, got %v", s.NameLocaleOrDefault())
	}
	s.NameLocale = language.Dutch
	if s.NameLocaleOrDefault() != language.Dutch {
		t.Fatalf("configured locale must win, got %v", s.NameLocaleOrDefault())
	}
}

func TestRoomService_Create_ClipsLongNames(t *testing.T) {
	r := &fakeRoomRepo{}
	s := NewRoomService(nil, r)
	s.NameMaxLen = 5

	if _, err := s.Create(context.Background(), "t1", "u1", domain.RoomTypeGroup, "ωωωωωωωω", []string{"u1", "u2"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := utf8.RuneCountInString(r.createName); got != 5 {
		t.Fatalf("name not clipped by runes: %q (%d runes)", r.createName, got)
	}
}

func TestRoomService_Create_StorageError(t *testing.T) {
	r := &fakeRoomRepo{createErr: errors.New("disk on fire")}
	s := NewRoomService(nil, r)

	_, err := s.Create(context.Background(), "t1", "u1", domain.RoomTypeGroup, "x", []string{"u1", "u2"})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestRoomService_ListForUser_PassesScope(t *testing.T) {
	r := &fakeRoomRepo{listRooms: []domain.Room{{ID: "r1"}, {ID: "r2"}}}
	s := NewRoomService(nil, r)

	rooms, err := s.ListForUser(context.Background(), "u1", "t1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(rooms) != 2 || r.listUserID != "u1" || r.listTenantID != "t1" {
		t.Fatalf("unexpected result: rooms=%v user=%q tenant=%q", rooms, r.listUserID, r.listTenantID)
	}
}
