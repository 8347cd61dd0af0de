package page

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindchat/backend/internal/analysis/crisis"
	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	htmlrender "github.com/zhouzirui/mindchat/backend/internal/render/html"
	chatService "github.com/zhouzirui/mindchat/backend/internal/service/chat"
)

// CookieName holds the browser's session id.
const CookieName = "mindchat_session"

// Handler serves the browser chat page. The session id travels in a cookie;
// each form post is one submit followed by a redirect that re-renders the
// whole history.
type Handler struct {
	chatSvc  *chatService.Service
	renderer *htmlrender.Renderer
	ttl      time.Duration
}

// New creates a page handler. ttl bounds the session cookie lifetime.
func New(chatSvc *chatService.Service, renderer *htmlrender.Renderer, ttl time.Duration) *Handler {
	return &Handler{chatSvc: chatSvc, renderer: renderer, ttl: ttl}
}

// RegisterRoutes registers the page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handlePage)
	r.Post("/chat", h.handleChat)
	r.Post("/chat/reset", h.handleReset)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageData := htmlrender.Page{Modes: h.chatSvc.Modes().List()}
	pageData.Mode, _ = h.chatSvc.Modes().FindByID(mode.DefaultID)

	var history chat.History
	if session, ok := h.currentSession(r); ok {
		loaded, err := h.chatSvc.LoadHistory(ctx, session.ID)
		if err != nil && !errors.Is(err, chatService.ErrSessionNotFound) {
			log.Error("[page] load history failed", "session", session.ID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		history = loaded
		if m, ok := h.chatSvc.Modes().FindByID(session.ModeID); ok {
			pageData.Mode = m
		}
		pageData.Crisis = lastUserAssessment(history)
		pageData.ResetAction = "/chat/reset"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderPage(w, history, pageData); err != nil {
		log.Error("[page] render failed", "err", err)
	}
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	message := r.PostForm.Get("message")
	modeID := r.PostForm.Get("mode")

	session, ok := h.currentSession(r)
	switch {
	case !ok && strings.TrimSpace(message) == "":
		// Nothing to say yet; no session is started for an empty post.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case !ok:
		created, err := h.chatSvc.CreateSession(ctx, modeID)
		if err != nil {
			if errors.Is(err, chatService.ErrModeNotFound) {
				http.Error(w, "mode not found", http.StatusBadRequest)
				return
			}
			log.Error("[page] create session failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		session = created
	case modeID != "" && modeID != session.ModeID:
		http.Error(w, "this conversation already uses another mode; start a new conversation to change it", http.StatusConflict)
		return
	}

	if _, err := h.chatSvc.Submit(ctx, session.ID, message); err != nil {
		switch {
		case errors.Is(err, chatService.ErrSubmissionPending):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Error("[page] submit failed", "session", session.ID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	// Re-issued on every post so the cookie lives as long as the session.
	h.setCookie(w, session.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if session, ok := h.currentSession(r); ok {
		if err := h.chatSvc.EndSession(r.Context(), session.ID); err != nil && !errors.Is(err, chatService.ErrSessionNotFound) {
			log.Warn("[page] end session failed", "session", session.ID, "err", err)
		}
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) currentSession(r *http.Request) (chat.Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return chat.Session{}, false
	}
	session, err := h.chatSvc.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return chat.Session{}, false
	}
	return session, true
}

func (h *Handler) setCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func lastUserAssessment(history chat.History) *crisis.Assessment {
	for i := history.Len() - 1; i >= 0; i-- {
		if t := history.At(i); t.Role == chat.RoleUser {
			assessment := crisis.Detect(t.Message)
			return &assessment
		}
	}
	return nil
}
