package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medichat/go-messaging-backend/internal/domain"
	"github.com/medichat/go-messaging-backend/internal/services"
)

func newEventRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/events", h.PostEvent)
	r.GET("/events", h.ListEvents)
	r.POST("/events/:id/delivered", h.AckEventDelivered)
	return r
}

func TestPostEvent_HappyPath(t *testing.T) {
	h := New(stubRoomSvc{}, stubMsgSvc{}, stubReceiptSvc{}, stubEventSvc{
		logf: func(_ context.Context, in services.LogEventInput) (*domain.NotificationEvent, error) {
			if in.SourceUserID != "u1" || in.TenantID != "clinic-a" || in.TargetUserID != "u2" {
				return nil, errors.New("unexpected args")
			}
			return &domain.NotificationEvent{
				ID:           "e1",
				EventType:    in.EventType,
				TargetUserID: in.TargetUserID,
				Payload:      in.Payload,
				Status:       domain.EventStatusSent,
			}, nil
		},
	})

	w := doJSON(newEventRouter(h), http.MethodPost, "/events",
		gin.H{
			"event_type":     "message.new",
			"event_category": "chat",
			"target_user_id": "u2",
			"payload":        gin.H{"room_id": "r1"},
		},
		map[string]string{"X-User-ID": "u1", "X-Tenant-ID": "clinic-a"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var e domain.NotificationEvent
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if e.ID != "e1" || e.Status != domain.EventStatusSent {
		t.Fatalf("unexpected body: %+v", e)
	}
}

func TestPostEvent_Validation(t *testing.T) {
	h := New(stubRoomSvc{}, stubMsgSvc{}, stubReceiptSvc{}, stubEventSvc{
		logf: func(context.Context, services.LogEventInput) (*domain.NotificationEvent, error) {
			return nil, services.ErrInvalidTarget
		},
	})
	r := newEventRouter(h)

	// event_type missing → binding failure
	w := doJSON(r, http.MethodPost, "/events", gin.H{"target_user_id": "u2"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing event_type: status=%d", w.Code)
	}

	// no target → service rejects
	w = doJSON(r, http.MethodPost, "/events", gin.H{"event_type": "ping"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing target: status=%d", w.Code)
	}
}

func TestListEvents(t *testing.T) {
	h := New(stubRoomSvc{}, stubMsgSvc{}, stubReceiptSvc{}, stubEventSvc{
		recent: func(_ context.Context, userID, tenant string, limit int) ([]domain.NotificationEvent, error) {
			if userID != "u2" || tenant != "clinic-a" || limit != 5 {
				return nil, errors.New("unexpected args")
			}
			return []domain.NotificationEvent{{ID: "e1"}, {ID: "e2"}}, nil
		},
	})

	w := doJSON(newEventRouter(h), http.MethodGet, "/events?limit=5", nil,
		map[string]string{"X-User-ID": "u2", "X-Tenant-ID": "clinic-a"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ListEventsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestListEvents_EmptyIsNotAnError(t *testing.T) {
	h := New(stubRoomSvc{}, stubMsgSvc{}, stubReceiptSvc{}, stubEventSvc{
		recent: func(context.Context, string, string, int) ([]domain.NotificationEvent, error) {
			return nil, nil
		},
	})
	w := doJSON(newEventRouter(h), http.MethodGet, "/events", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ListEventsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Events == nil || len(resp.Events) != 0 {
		t.Fatalf("want empty slice, got %+v", resp.Events)
	}
}

func TestAckEventDelivered(t *testing.T) {
	var acked string
	h := New(stubRoomSvc{}, stubMsgSvc{}, stubReceiptSvc{}, stubEventSvc{
		deliver: func(_ context.Context, eventID string) error {
			acked = eventID
			return nil
		},
	})
	r := newEventRouter(h)

	w := doJSON(r, http.MethodPost, "/events/nope/delivered", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid: status=%d", w.Code)
	}

	id := uuid.NewString()
	w = doJSON(r, http.MethodPost, "/events/"+id+"/delivered", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("ack: status=%d body=%s", w.Code, w.Body.String())
	}
	if acked != id {
		t.Fatalf("service saw %q; want %q", acked, id)
	}
}

func TestAckEventDelivered_StorageError(t *testing.T) {
	h := New(stubRoomSvc{}, stubMsgSvc{}, stubReceiptSvc{}, stubEventSvc{
		deliver: func(context.Context, string) error { return errors.New("disk on fire") },
	})
	w := doJSON(newEventRouter(h), http.MethodPost, "/events/"+uuid.NewString()+"/delivered", nil, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}
