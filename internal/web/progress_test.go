package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nugget/stratagem/internal/tools"
)

func TestHub_DeliversByRunID(t *testing.T) {
	h := NewHub(testLogger())
	a, cancelA := h.Subscribe("run-a")
	defer cancelA()
	b, cancelB := h.Subscribe("run-b")
	defer cancelB()

	h.Notify(tools.Event{RunID: "run-a", Tool: "web_search", Message: "hello"})

	select {
	case e := <-a:
		if e.Message != "hello" {
			t.Errorf("Message = %q", e.Message)
		}
	default:
		t.Fatal("subscriber a got nothing")
	}
	select {
	case e := <-b:
		t.Errorf("subscriber b got %+v", e)
	default:
	}
}

func TestHub_DropsWhenFull(t *testing.T) {
	h := NewHub(testLogger())
	ch, cancel := h.Subscribe("r")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Notify(tools.Event{RunID: "r"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	h := NewHub(testLogger())
	_, cancel := h.Subscribe("r")
	if h.Subscribers("r") != 1 {
		t.Fatalf("Subscribers = %d", h.Subscribers("r"))
	}
	cancel()
	cancel()
	if h.Subscribers("r") != 0 {
		t.Errorf("Subscribers after cancel = %d", h.Subscribers("r"))
	}

	// Publishing with no subscribers is a no-op.
	h.Notify(tools.Event{RunID: "r"})
}

func TestProgressWebSocket(t *testing.T) {
	ws := newTestServer(&stubInvoker{})
	srv := httptest.NewServer(ws.Handler())
	defer srv.Close()

	runID := "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress?run=" + runID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for ws.hub.Subscribers(runID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ws.hub.Notify(tools.Event{
		RunID:    runID,
		Tool:     "get_stock_info",
		Argument: "NVDA",
		Message:  "📈 Reading market data: NVDA...",
		Time:     time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg progressMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Tool != "get_stock_info" || msg.Argument != "NVDA" || msg.Message != "📈 Reading market data: NVDA..." {
		t.Errorf("msg = %+v", msg)
	}
}

func TestProgressWebSocket_SubscribedOnOpen(t *testing.T) {
	ws := newTestServer(&stubInvoker{})
	srv := httptest.NewServer(ws.Handler())
	defer srv.Close()

	runID := "0b8d4a52-3f0e-4c61-8d1e-6a2f9c7e5b13"
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress?run=" + runID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// No waiting: an event published right after the handshake arrives.
	if n := ws.hub.Subscribers(runID); n != 1 {
		t.Fatalf("subscribers after open = %d, want 1", n)
	}
	ws.hub.Notify(tools.Event{RunID: runID, Tool: "web_search", Message: "🌍 Searching the web: Nvidia..."})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg progressMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Tool != "web_search" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestProgressWebSocket_BadRunID(t *testing.T) {
	ws := newTestServer(&stubInvoker{})
	w := serve(ws, httptest.NewRequest("GET", "/ws/progress?run=nope", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
