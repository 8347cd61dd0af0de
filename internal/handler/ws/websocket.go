package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/mindchat/backend/internal/analysis/crisis"
	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	"github.com/zhouzirui/mindchat/backend/internal/render"
	"github.com/zhouzirui/mindchat/backend/internal/service/turn"
)

const (
	defaultReadTimeout = 60 * time.Second
	writeTimeout       = 10 * time.Second
)

// ProcessorSource resolves the turn processor for a mode.
type ProcessorSource interface {
	Processor(modeID string) *turn.Processor
}

// Handler runs a chat over a WebSocket. The connection is the session: its
// history lives in the connection state and is dropped when the socket closes.
type Handler struct {
	processors ProcessorSource
	modes      mode.Store
	upgrader   websocket.Upgrader
	// readTimeout bounds silence from an idle client; pings go out at 9/10
	// of it.
	readTimeout time.Duration
}

// New creates a WebSocket handler.
func New(processors ProcessorSource, modes mode.Store) *Handler {
	return &Handler{
		processors: processors,
		modes:      modes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout: defaultReadTimeout,
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage carries user input.
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage switches the connection's mode.
type ConfigMessage struct {
	ModeID string `json:"modeId"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	sessionID string
	mode      mode.Mode
	history   chat.History
}

func newConnectionState(m mode.Mode) *connectionState {
	return &connectionState{sessionID: uuid.NewString(), mode: m}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	modeID := r.URL.Query().Get("mode")
	if modeID == "" {
		modeID = mode.DefaultID
	}
	m, ok := h.modes.FindByID(modeID)
	if !ok {
		http.Error(w, "mode not found", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("[websocket] upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	state := newConnectionState(m)
	log.Info("[websocket] connection opened", "session", state.sessionID, "mode", m.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go pingLoop(ctx, conn, h.readTimeout*9/10)

	h.send(conn, state, "connected", map[string]any{"mode": m.ID})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("[websocket] read error", "session", state.sessionID, "err", err)
			}
			log.Info("[websocket] connection closed", "session", state.sessionID, "turns", state.history.Len())
			return
		}

		// No reads happen while the assistant answers, so pongs cannot
		// extend the deadline; suspend it until the message is handled.
		conn.SetReadDeadline(time.Time{})
		h.handleMessage(ctx, conn, state, &msg)
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

// handleMessage runs to completion before the next read, so a connection
// never has two submissions in flight.
func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(conn, "invalid text payload")
			return
		}
		turns, assessment := h.submit(ctx, state, text.Text)
		for _, tv := range render.Turns(turns) {
			h.send(conn, state, "turn", tv)
		}
		if assessment.Found {
			h.send(conn, state, "crisis", assessment)
		}
	case "config":
		var cfg ConfigMessage
		if err := json.Unmarshal(msg.Data, &cfg); err != nil {
			h.sendError(conn, "invalid config payload")
			return
		}
		if !h.applyConfig(state, cfg) {
			h.sendError(conn, "mode not found")
			return
		}
		h.send(conn, state, "config", map[string]any{"mode": state.mode.ID})
	case "history":
		h.send(conn, state, "history", render.Build(state.history))
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

// submit runs one exchange against the connection's history and returns the
// appended turns.
func (h *Handler) submit(ctx context.Context, state *connectionState, text string) ([]chat.Turn, crisis.Assessment) {
	before := state.history.Len()
	state.history = h.processors.Processor(state.mode.ID).Submit(ctx, state.history, text)
	appended := state.history.Since(before)
	if len(appended) == 0 {
		return nil, crisis.Assessment{Level: crisis.Low}
	}
	return appended, crisis.Detect(text)
}

func (h *Handler) applyConfig(state *connectionState, cfg ConfigMessage) bool {
	if cfg.ModeID == "" || cfg.ModeID == state.mode.ID {
		return true
	}
	m, ok := h.modes.FindByID(cfg.ModeID)
	if !ok {
		return false
	}
	state.mode = m
	return true
}

func (h *Handler) send(conn *websocket.Conn, state *connectionState, kind string, data interface{}) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: state.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn("[websocket] write failed", "type", kind, "err", err)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn("[websocket] write error failed", "err", err)
	}
}

// pingLoop keeps idle connections alive. WriteControl may run concurrently
// with the handler's data writes.
func pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
