package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func register(t *testing.T, conn *websocket.Conn, jobID string) {
	t.Helper()
	msg := registerMessage{Type: "register", JobID: jobID}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("register: %v", err)
	}
}

// waitForBinding polls until the hub has a client for the job, since
// registration happens on the server's read loop
func waitForBinding(t *testing.T, h *Hub, jobID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.RLock()
		_, ok := h.clients[jobID]
		h.mu.RUnlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no client bound to job %s", jobID)
}

func TestSendReachesRegisteredClient(t *testing.T) {
	h := NewHub()
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	register(t, conn, "job-1")
	waitForBinding(t, h, "job-1")

	if !h.Send("job-1", "upload-success", map[string]string{"fileName": "intro.mp3"}) {
		t.Fatal("Send should report delivery")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "upload-success" {
		t.Errorf("type = %q, want upload-success", msg.Type)
	}
	if msg.Payload["fileName"] != "intro.mp3" {
		t.Errorf("payload = %v", msg.Payload)
	}
}

func TestSendWithoutClientIsDropped(t *testing.T) {
	h := NewHub()
	if h.Send("job-unknown", "upload-success", nil) {
		t.Error("Send with no registered client should report a drop")
	}
}

func TestLastRegistrationWins(t *testing.T) {
	h := NewHub()
	server := httptest.NewServer(h)
	defer server.Close()

	first := dial(t, server)
	register(t, first, "job-1")
	waitForBinding(t, h, "job-1")

	second := dial(t, server)
	register(t, second, "job-1")

	// give the second register time to land, then close the first
	// connection: its deferred deregister must not evict the newer binding
	time.Sleep(50 * time.Millisecond)
	first.Close()
	time.Sleep(50 * time.Millisecond)

	if !h.Send("job-1", "upload-success", nil) {
		t.Fatal("send after older connection closed should still deliver")
	}

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err != nil {
		t.Fatalf("second connection should receive the event: %v", err)
	}
}

func TestRebindToAnotherJob(t *testing.T) {
	h := NewHub()
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	register(t, conn, "job-1")
	waitForBinding(t, h, "job-1")

	register(t, conn, "job-2")
	waitForBinding(t, h, "job-2")

	// the old binding is released
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.RLock()
		_, ok := h.clients["job-1"]
		h.mu.RUnlock()
		if !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("binding for job-1 should be gone after rebinding to job-2")
}
