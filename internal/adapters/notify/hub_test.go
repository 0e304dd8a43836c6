package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/gorilla/websocket"
)

func waitForSubscribers(t *testing.T, h *Hub, userID uint, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Subscribers(userID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers for user %d, got %d", want, userID, h.Subscribers(userID))
}

func TestHubDeliversOnlyToRecipient(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, 7)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, hub, 7, 1)

	ctx := context.Background()
	if err := hub.Notify(ctx, domain.Event{ID: "other", Type: domain.EventAssetAssigned, RecipientID: 8}); err != nil {
		t.Fatalf("notify other: %v", err)
	}
	if err := hub.Notify(ctx, domain.Event{
		ID:          "mine",
		Type:        domain.EventRequestApproved,
		RecipientID: 7,
		SubjectType: domain.SubjectRequest,
		SubjectID:   42,
		Payload:     map[string]any{"code": "REQ-000042"},
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.ID != "mine" || msg.Type != domain.EventRequestApproved || msg.SubjectID != 42 || msg.Payload["code"] != "REQ-000042" {
		t.Fatalf("unexpected message %+v", msg)
	}

	conn.Close()
	waitForSubscribers(t, hub, 7, 0)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	slow := &client{userID: 3, send: make(chan []byte, 1)}
	hub.add(slow)

	ev := domain.Event{Type: domain.EventTicketAssigned, RecipientID: 3}
	if err := hub.Notify(context.Background(), ev); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	if err := hub.Notify(context.Background(), ev); err != nil {
		t.Fatalf("second notify must not fail: %v", err)
	}
	if n := hub.Subscribers(3); n != 0 {
		t.Fatalf("slow subscriber should be dropped, %d left", n)
	}
	if _, ok := <-slow.send; !ok {
		t.Fatalf("buffered message should still be readable")
	}
	if _, ok := <-slow.send; ok {
		t.Fatalf("send channel should be closed")
	}
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, domain.Event) error { return f.err }

func TestFanoutJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	hub := NewHub()
	err := Fanout{hub, LogNotifier{}, nil, failingNotifier{err: boom}}.Notify(context.Background(), domain.Event{Type: domain.EventAssetAssigned, RecipientID: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if err := (Fanout{hub, LogNotifier{Sender: "assets@example.com"}}).Notify(context.Background(), domain.Event{Type: domain.EventAssetAssigned}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
