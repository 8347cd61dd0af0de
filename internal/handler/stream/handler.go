package stream

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindchat/backend/internal/render"
	chatService "github.com/zhouzirui/mindchat/backend/internal/service/chat"
	"github.com/zhouzirui/mindchat/backend/pkg/utils"
)

// Handler streams the turns of a submission as Server-Sent Events.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a stream handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers the streaming route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/{sessionID}/stream", h.handleStream)
}

// Event names emitted on the stream.
const (
	EventStart  = "start"
	EventTurn   = "turn"
	EventCrisis = "crisis"
	EventEnd    = "end"
	EventError  = "error"
)

type statusEvent struct {
	SessionID string `json:"sessionId"`
	Count     int    `json:"count,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Lookup and pending checks answer with a plain status before the
	// stream starts; later failures arrive as an error event.
	sub, err := h.chatSvc.Reserve(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, chatService.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, chatService.ErrSubmissionPending):
			utils.RespondError(w, http.StatusConflict, err.Error())
		default:
			log.Error("[stream] session lookup failed", "session", sessionID, "err", err)
			utils.RespondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	defer sub.Release()

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, EventStart, statusEvent{SessionID: sessionID})

	ex, err := sub.Submit(r.Context(), payload.Message)
	if err != nil {
		log.Warn("[stream] submit failed", "session", sessionID, "err", err)
		utils.SendSSEEvent(w, flusher, EventError, statusEvent{SessionID: sessionID, Error: err.Error()})
		return
	}

	for _, tv := range render.Turns(ex.Appended) {
		utils.SendSSEEvent(w, flusher, EventTurn, tv)
	}
	if ex.Crisis.Found {
		utils.SendSSEEvent(w, flusher, EventCrisis, ex.Crisis)
	}
	utils.SendSSEEvent(w, flusher, EventEnd, statusEvent{SessionID: sessionID, Count: ex.History.Len()})

	log.Debug("[stream] completed", "session", sessionID, "turns", ex.History.Len())
}
