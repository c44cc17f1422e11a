// Package domain defines the persistence models for rooms, messages, and
// notification events. These types are mapped with GORM and form the core
// data layer of the messaging backend. Every entity carries a tenant
// identifier; all queries must be scoped by it.
package domain

import (
	"time"
)

// Room types. A direct room always has exactly two participants; group and
// support rooms carry a human-readable name.
const (
	RoomTypeDirect  = "direct"
	RoomTypeGroup   = "group"
	RoomTypeSupport = "support"
)

// Message types accepted by the message store.
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Notification delivery lifecycle. The only legal transition is
// sent → delivered; there is no automatic expiry.
const (
	EventStatusSent      = "sent"
	EventStatusDelivered = "delivered"
)

// Room represents a conversation container with a fixed participant set.
// Rooms are never hard-deleted; deactivation flips IsActive and hides the
// room from listings and message sends.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: human-readable name; required for group/support rooms.
//   - Type: one of direct, group, support (enforced by DB constraint).
//   - Participants: JSON-encoded set of user identifiers; immutable after creation.
//   - CreatedBy: identifier of the user who initiated the room.
//   - TenantID: owning tenant; indexed together with participants lookups.
//   - IsActive: lifecycle flag; inactive rooms are excluded from all reads.
type Room struct {
	ID           string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"         gorm:"type:varchar(255)"`
	Type         string    `json:"type"         gorm:"type:varchar(16);not null;check:type IN ('direct','group','support')"`
	Participants StringSet `json:"participants" gorm:"type:text;not null"`
	CreatedBy    string    `json:"created_by"   gorm:"type:varchar(64);not null"`
	TenantID     string    `json:"tenant_id"    gorm:"type:varchar(64);not null;index:idx_tenant_rooms"`
	IsActive     bool      `json:"is_active"    gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Room.
func (Room) TableName() string { return "rooms" }

// HasParticipant reports whether userID belongs to the room.
func (r *Room) HasParticipant(userID string) bool {
	return r.Participants.Has(userID)
}

// Message represents a single entry in a room's append-only log.
//
// Invariants:
//   - ReadBy contains SenderID from creation (a sender has read their own message).
//   - ReadBy only grows; concurrent additions are merged as a set union.
//   - IsDeleted flips false→true exactly once; deleted rows are retained but
//     hidden from history reads and unread counts.
//   - CreatedAt is strictly increasing within a room; (created_at, id) gives
//     a total order for pagination when timestamps tie.
type Message struct {
	ID          string      `json:"id"           gorm:"type:char(36);primaryKey"`
	RoomID      string      `json:"room_id"      gorm:"type:char(36);not null;index:idx_room_msgs,priority:1"`
	SenderID    string      `json:"sender_id"    gorm:"type:varchar(64);not null"`
	SenderName  string      `json:"sender_name"  gorm:"type:varchar(255);not null"`
	Type        string      `json:"type"         gorm:"type:varchar(16);not null;check:type IN ('text','image','file','system')"`
	Content     string      `json:"content"      gorm:"type:text;not null"`
	Attachments Attachments `json:"attachments,omitempty" gorm:"type:text"`
	ReplyTo     *string     `json:"reply_to,omitempty"    gorm:"type:char(36)"`
	ReadBy      StringSet   `json:"read_by"      gorm:"type:text;not null"`
	IsDeleted   bool        `json:"is_deleted"   gorm:"not null;default:false"`
	TenantID    string      `json:"tenant_id"    gorm:"type:varchar(64);not null;index"`
	CreatedAt   time.Time   `json:"created_at"   gorm:"index:idx_room_msgs,priority:2"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// ReadByUser reports whether userID has acknowledged the message.
func (m *Message) ReadByUser(userID string) bool {
	return m.ReadBy.Has(userID)
}

// NotificationEvent records a real-time event pushed out-of-band to a user or
// a room, together with its delivery status. Source and target references are
// soft (identifier-only, no FK enforcement); at least one target field must
// be set. Events are never deleted.
type NotificationEvent struct {
	ID                 string    `json:"id"             gorm:"type:char(36);primaryKey"`
	EventType          string    `json:"event_type"     gorm:"type:varchar(64);not null"`
	EventCategory      string    `json:"event_category" gorm:"type:varchar(64);not null"`
	SourceUserID       string    `json:"source_user_id,omitempty"       gorm:"type:varchar(64)"`
	SourceConnectionID string    `json:"source_connection_id,omitempty" gorm:"type:varchar(128)"`
	TargetUserID       string    `json:"target_user_id,omitempty"       gorm:"type:varchar(64);index:idx_target_events,priority:1"`
	TargetRoomID       string    `json:"target_room_id,omitempty"       gorm:"type:char(36)"`
	Payload            Payload   `json:"payload"        gorm:"type:text"`
	Status             string    `json:"status"         gorm:"type:varchar(16);not null;default:'sent';check:status IN ('sent','delivered')"`
	TenantID           string    `json:"tenant_id"      gorm:"type:varchar(64);not null;index"`
	CreatedAt          time.Time `json:"timestamp"      gorm:"index:idx_target_events,priority:2"`
	UpdatedAt          time.Time `json:"-"`
}

// TableName returns the database table name for NotificationEvent.
func (NotificationEvent) TableName() string { return "notification_events" }

// Idempotency represents a recorded result of a previously processed send,
// keyed by (user_id, room_id, key). It enables safe retries for POST
// operations by returning the originally produced message without
// re-executing side effects.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_room_key,priority:1"`
	RoomID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_room_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_room_key,priority:3"`
	MessageID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// ValidRoomType reports whether t is an accepted room type.
func ValidRoomType(t string) bool {
	switch t {
	case RoomTypeDirect, RoomTypeGroup, RoomTypeSupport:
		return true
	}
	return false
}

// ValidMessageType reports whether t is an accepted message type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}
