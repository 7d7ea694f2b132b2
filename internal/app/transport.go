package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/airwavefm/aidj/internal/planning"
	"github.com/airwavefm/aidj/internal/scheduler"
	"github.com/airwavefm/aidj/pkg/types"
)

// signal is the wire shape of every message exchanged on the control-plane
// websocket, in both directions. Transport clients send "consumed" and
// "request_more_segments"; the broadcaster sends "segment_ready".
//
// The actual segment frames (WebRTC, HTTP byte-range, or a file sink) are
// out of scope (spec.md §6) — this channel carries only the signal surface
// spec.md §4.3/§4.4 names: connect, disconnect, consumed, request_more_segments.
type signal struct {
	Type string `json:"type"`

	// Fields set on an outbound "segment_ready" message.
	SessionID  string `json:"session_id,omitempty"`
	Index      int    `json:"index,omitempty"`
	TrackID    string `json:"track_id,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	UsedVoice  bool   `json:"used_voice,omitempty"`
}

// writeTimeout bounds how long a single broadcast write may block a slow
// client before the hub gives up on it for this message.
const writeTimeout = 5 * time.Second

// Hub is the control-plane side of the transport contract: it accepts
// websocket connections, broadcasts "segment_ready" notifications as the
// Planning Graph enqueues segments, and relays "consumed"/
// "request_more_segments" signals from transport clients back to the
// scheduler. It implements [planning.Notifier].
//
// Grounded on deepgram.go's client-side conn.Write(ctx, websocket.MessageText,
// ...)/conn.Close(websocket.StatusNormalClosure, ...) framing, adapted to the
// server (websocket.Accept) role — the teacher pack only ever dials out.
type Hub struct {
	sched *scheduler.Scheduler
	log   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

var _ planning.Notifier = (*Hub)(nil)

// NewHub returns a Hub that relays urgency signals to sched.
func NewHub(sched *scheduler.Scheduler, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		sched:   sched,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// NotifySegmentReady implements [planning.Notifier]. It broadcasts a
// "segment_ready" message to every connected transport client, best-effort:
// a slow or dead client is dropped rather than blocking the planning graph.
func (h *Hub) NotifySegmentReady(seg types.Segment) {
	msg := signal{
		Type:       "segment_ready",
		SessionID:  seg.SessionID,
		Index:      seg.Index,
		TrackID:    seg.TrackID,
		FilePath:   seg.FilePath,
		DurationMS: seg.Duration.Milliseconds(),
		UsedVoice:  seg.UsedVoice,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("transport hub: marshal segment_ready", "error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			h.log.Warn("transport hub: dropping client after write failure", "error", err)
			h.remove(c)
		}
	}
}

// ServeHTTP upgrades r to a websocket connection and services it until the
// client disconnects or ctx (the server's lifetime context) is cancelled.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("transport hub: accept failed", "error", err)
		return
	}
	h.add(conn)
	h.log.Info("transport hub: client connected", "remote_addr", r.RemoteAddr)

	defer func() {
		h.remove(conn)
		conn.Close(websocket.StatusNormalClosure, "connection closed")
		h.log.Info("transport hub: client disconnected", "remote_addr", r.RemoteAddr)
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		h.handleSignal(data)
	}
}

// handleSignal decodes one inbound frame and acts on the "consumed"/
// "request_more_segments" signals; malformed or unrecognized frames are
// logged and ignored rather than closing the connection.
func (h *Hub) handleSignal(data []byte) {
	var s signal
	if err := json.Unmarshal(data, &s); err != nil {
		h.log.Debug("transport hub: ignoring malformed frame", "error", err)
		return
	}

	switch s.Type {
	case "consumed":
		h.log.Debug("transport hub: segment consumed", "index", s.Index)
	case "request_more_segments":
		h.log.Info("transport hub: urgency signal received")
		h.sched.RequestMoreSegments()
	default:
		h.log.Debug("transport hub: unrecognized signal", "type", s.Type)
	}
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ClientCount reports the number of currently connected transport clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
