package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pizzeria/api/internal/auth"
	"github.com/pizzeria/api/internal/enum"
)

const testSecret = "ws-test-secret"

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		got := len(hub.clients)
		hub.mu.RUnlock()
		if got == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients", n)
}

func TestServeWS_DeliversRoomEvents(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(Handler(hub, testSecret))
	t.Cleanup(srv.Close)

	adminToken, _ := auth.GenerateToken(testSecret, uuid.New(), true, time.Minute)
	customerToken, _ := auth.GenerateToken(testSecret, uuid.New(), false, time.Minute)
	admin := dial(t, srv, adminToken)
	customer := dial(t, srv, customerToken)
	waitForClients(t, hub, 2)

	ev, _ := NewEvent(enum.EventNotificationsChanged, map[string]int{"prepared": 2})
	if err := hub.Publish(t.Context(), enum.RoomAdmins, ev); err != nil {
		t.Fatal(err)
	}
	pizza, _ := NewEvent(enum.EventPizzaDeleted, map[string]string{"id": "p1"})
	if err := hub.Publish(t.Context(), enum.RoomAll, pizza); err != nil {
		t.Fatal(err)
	}

	admin.SetReadDeadline(time.Now().Add(time.Second))
	var got Event
	if err := admin.ReadJSON(&got); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if got.Type != enum.EventNotificationsChanged {
		t.Errorf("admin first event: got %q", got.Type)
	}

	// Customers are not in the admins room, so their first frame is the pizza event
	customer.SetReadDeadline(time.Now().Add(time.Second))
	if err := customer.ReadJSON(&got); err != nil {
		t.Fatalf("customer read: %v", err)
	}
	if got.Type != enum.EventPizzaDeleted {
		t.Errorf("customer first event: got %q, want %q", got.Type, enum.EventPizzaDeleted)
	}
}

func TestServeWS_AdminReceivesOwnOrderOnce(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(Handler(hub, testSecret))
	t.Cleanup(srv.Close)

	adminID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, adminID, true, time.Minute)
	admin := dial(t, srv, token)
	waitForClients(t, hub, 1)

	// Order events go to the admins room and to the waiter's own room
	order, _ := NewEvent(enum.EventOrderCreated, map[string]string{"id": "o1"})
	for _, room := range []string{enum.RoomAdmins, UserRoom(adminID.String())} {
		if err := hub.Publish(t.Context(), room, order); err != nil {
			t.Fatal(err)
		}
	}
	pizza, _ := NewEvent(enum.EventPizzaDeleted, map[string]string{"id": "p1"})
	if err := hub.Publish(t.Context(), enum.RoomAll, pizza); err != nil {
		t.Fatal(err)
	}

	var got []string
	for range 2 {
		var ev Event
		admin.SetReadDeadline(time.Now().Add(time.Second))
		if err := admin.ReadJSON(&ev); err != nil {
			t.Fatalf("admin read: %v", err)
		}
		got = append(got, ev.Type)
	}
	want := []string{enum.EventOrderCreated, enum.EventPizzaDeleted}
	if got[0] != want[0] || got[1] != want[1] {
		t.Errorf("admin events: got %v, want %v", got, want)
	}
}

func TestServeWS_RejectsBadToken(t *testing.T) {
	hub := startHub(t)

	for _, target := range []string{"/ws", "/ws?token=garbage"} {
		rr := httptest.NewRecorder()
		ServeWS(hub, testSecret, rr, httptest.NewRequest("GET", target, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: got %d, want 401", target, rr.Code)
		}
	}
}
