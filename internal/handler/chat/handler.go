package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindchat/backend/internal/analysis/crisis"
	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/render"
	chatService "github.com/zhouzirui/mindchat/backend/internal/service/chat"
	"github.com/zhouzirui/mindchat/backend/pkg/utils"
)

// Handler serves the session JSON API.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Delete("/session/{sessionID}", h.handleEndSession)
	r.Post("/session/{sessionID}/messages", h.handleSubmit)
}

type sessionResponse struct {
	Session chat.Session `json:"session"`
	render.View
}

type submitResponse struct {
	Session  chat.Session      `json:"session"`
	Appended []render.TurnView `json:"appended"`
	Crisis   crisis.Assessment `json:"crisis"`
	render.View
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ModeID string `json:"modeId"`
	}

	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.ModeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	history, err := h.chatSvc.LoadHistory(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionResponse{Session: session, View: render.Build(history)})
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ex, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, submitResponse{
		Session:  ex.Session,
		Appended: render.Turns(ex.Appended),
		Crisis:   ex.Crisis,
		View:     render.Build(ex.History),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrModeNotFound):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrSubmissionPending):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		log.Error("[chat] request failed", "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
