package web

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nugget/stratagem/internal/tools"
)

// subscriberBuffer is the number of events held per subscriber before
// new events are dropped.
const subscriberBuffer = 16

// Hub fans tool progress events out to WebSocket subscribers, keyed by
// run id. It implements [tools.Notifier]; publishing never blocks.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan tools.Event]struct{}
	logger *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]map[chan tools.Event]struct{}),
		logger: logger,
	}
}

// Subscribe registers interest in runID. The returned cancel function
// must be called to release the subscription.
func (h *Hub) Subscribe(runID string) (<-chan tools.Event, func()) {
	ch := make(chan tools.Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[runID]
	if !ok {
		set = make(map[chan tools.Event]struct{})
		h.subs[runID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, runID)
			}
		})
	}
}

// Subscribers returns the number of subscribers for runID.
func (h *Hub) Subscribers(runID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[runID])
}

// Notify delivers e to every subscriber of e.RunID. Subscribers whose
// buffer is full miss the event. Safe to call on a nil receiver.
func (h *Hub) Notify(e tools.Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[e.RunID] {
		select {
		case ch <- e:
		default:
			h.logger.Debug("progress event dropped", "run_id", e.RunID, "tool", e.Tool)
		}
	}
}

// progressMessage is the JSON frame sent to the browser.
type progressMessage struct {
	Tool     string    `json:"tool"`
	Argument string    `json:"argument"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

const progressWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleProgress streams progress events for one run over a WebSocket.
func (s *WebServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	if _, err := uuid.Parse(runID); err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	// Subscribe before the handshake completes: the page starts the run
	// once the socket is open, and the first event must not be missed.
	events, cancel := s.hub.Subscribe(runID)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The browser never sends anything; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case e := <-events:
			conn.SetWriteDeadline(time.Now().Add(progressWriteTimeout))
			msg := progressMessage{Tool: e.Tool, Argument: e.Argument, Message: e.Message, Time: e.Time}
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("progress write failed", "run_id", runID, "error", err)
				return
			}
		}
	}
}
