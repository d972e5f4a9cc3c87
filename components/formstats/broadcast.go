package formstats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Cycle statuses carried by CycleEvent.
const (
	CycleCompleted = "completed"
	CycleFailed    = "failed"
	CycleCancelled = "cancelled"
)

// CycleEvent describes the outcome of one query cycle.
type CycleEvent struct {
	SessionID string    `json:"session_id"`
	Query     QueryKind `json:"query"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// CycleHook is notified when a cycle ends.
type CycleHook interface {
	CycleFinished(ctx context.Context, event CycleEvent) error
}

type noopCycleHook struct{}

func (noopCycleHook) CycleFinished(context.Context, CycleEvent) error { return nil }

// BroadcastHook fans out cycle events to in-process subscribers.
type BroadcastHook struct {
	mu   sync.RWMutex
	subs map[int]chan CycleEvent
	next int
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]chan CycleEvent)}
}

// CycleFinished broadcasts the event. Slow subscribers miss events.
func (h *BroadcastHook) CycleFinished(_ context.Context, event CycleEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of cycle events and a cancel func.
func (h *BroadcastHook) Subscribe() (<-chan CycleEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan CycleEvent, 8)
	h.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Subscribers reports how many streams are attached.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stream forwards events for sessionID (all sessions when empty) to send
// until ctx ends or send fails.
func (h *BroadcastHook) Stream(ctx context.Context, sessionID string, send func(CycleEvent) error) error {
	events, cancel := h.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if sessionID != "" && event.SessionID != sessionID {
				continue
			}
			if err := send(event); err != nil {
				return err
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ErrStreamSession is returned when an event stream is opened without a
// session id.
var ErrStreamSession = errors.New("formstats: event stream requires a session")

// StreamSession reads the session an HTTP event stream is scoped to.
func StreamSession(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("session"))
	if id == "" {
		id = strings.TrimSpace(r.Header.Get("X-Formstats-Session"))
	}
	if id == "" {
		return "", ErrStreamSession
	}
	return id, nil
}

// ServeWebSocket upgrades the request and streams the session's cycle events
// as JSON. The read loop only watches for the client going away.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, err := StreamSession(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	_ = h.Stream(ctx, sessionID, func(event CycleEvent) error {
		return conn.WriteJSON(event)
	})
}

// ServeSSE streams the session's cycle events as Server-Sent Events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	sessionID, err := StreamSession(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	encoder := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	_ = h.Stream(r.Context(), sessionID, func(event CycleEvent) error {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return err
		}
		if err := encoder.Encode(event); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
}
