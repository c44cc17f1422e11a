package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/medichat/go-messaging-backend/internal/domain"
)

func TestNotificationService_Log_RequiresTarget(t *testing.T) {
	s := &NotificationService{DB: newSvcDB(t)}
	_, err := s.Log(context.Background(), LogEventInput{
		EventType:     "presence.online",
		EventCategory: "presence",
		TenantID:      "t1",
	})
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestNotificationService_Log_TargetRoomAloneIsEnough(t *testing.T) {
	s := &NotificationService{DB: newSvcDB(t)}
	e, err := s.Log(context.Background(), LogEventInput{
		EventType:     "room.announcement",
		EventCategory: "system",
		TargetRoomID:  uuid.NewString(),
		TenantID:      "t1",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if e.Status != domain.EventStatusSent {
		t.Fatalf("status = %q; want sent", e.Status)
	}
}

// Full lifecycle: log → recent shows "sent" → ack → recent shows "delivered".
func TestNotificationService_DeliveryLifecycle(t *testing.T) {
	s := &NotificationService{DB: newSvcDB(t)}

	e, err := s.Log(context.Background(), LogEventInput{
		EventType:     "alert.system",
		EventCategory: "alerts",
		SourceUserID:  "admin",
		TargetUserID:  "U",
		Payload:       domain.Payload{"severity": "high"},
		TenantID:      "t1",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	recent, err := s.Recent(context.Background(), "U", "t1", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != e.ID || recent[0].Status != domain.EventStatusSent {
		t.Fatalf("unexpected recent list: %+v", recent)
	}

	if err := s.MarkDelivered(context.Background(), e.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	recent, err = s.Recent(context.Background(), "U", "t1", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if recent[0].Status != domain.EventStatusDelivered {
		t.Fatalf("status after ack = %q; want delivered", recent[0].Status)
	}
	if recent[0].Payload["severity"] != "high" {
		t.Fatalf("payload lost in round trip: %v", recent[0].Payload)
	}

	// Re-acking is a no-op, never a backward transition.
	if err := s.MarkDelivered(context.Background(), e.ID); err != nil {
		t.Fatalf("second MarkDelivered: %v", err)
	}
}

func TestNotificationService_MarkDelivered_SwallowsUnknownID(t *testing.T) {
	s := &NotificationService{DB: newSvcDB(t)}
	if err := s.MarkDelivered(context.Background(), uuid.NewString()); err != nil {
		t.Fatalf("unknown id must not propagate an error, got %v", err)
	}
}

type capturingPub struct {
	events []*domain.NotificationEvent
}

func (p *capturingPub) Publish(e *domain.NotificationEvent) { p.events = append(p.events, e) }

func TestNotificationService_Log_FansOutThroughPublisher(t *testing.T) {
	pub := &capturingPub{}
	s := &NotificationService{DB: newSvcDB(t), Pub: pub}

	e, err := s.Log(context.Background(), LogEventInput{
		EventType:     "message.new",
		EventCategory: "chat",
		TargetUserID:  "U",
		TenantID:      "t1",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].ID != e.ID {
		t.Fatalf("publisher saw %+v; want the logged event", pub.events)
	}

	// A rejected event must not be pushed.
	if _, err := s.Log(context.Background(), LogEventInput{EventType: "x", TenantID: "t1"}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("invalid event leaked to publisher")
	}
}

func TestNotificationService_Recent_ScopesAndLimits(t *testing.T) {
	s := &NotificationService{DB: newSvcDB(t)}

	for i := 0; i < 3; i++ {
		if _, err := s.Log(context.Background(), LogEventInput{
			EventType:     "ping",
			EventCategory: "presence",
			TargetUserID:  "U",
			TenantID:      "t1",
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	// Another user and another tenant must stay invisible.
	if _, err := s.Log(context.Background(), LogEventInput{
		EventType: "ping", EventCategory: "presence", TargetUserID: "V", TenantID: "t1",
	}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if _, err := s.Log(context.Background(), LogEventInput{
		EventType: "ping", EventCategory: "presence", TargetUserID: "U", TenantID: "t2",
	}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := s.Recent(context.Background(), "U", "t1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied: %d events", len(got))
	}
	for _, e := range got {
		if e.TargetUserID != "U" || e.TenantID != "t1" {
			t.Fatalf("scope leak: %+v", e)
		}
	}

	// No events for an unknown user is an empty slice, not an error.
	none, err := s.Recent(context.Background(), "nobody", "t1", 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result, got %v, %v", none, err)
	}
}
