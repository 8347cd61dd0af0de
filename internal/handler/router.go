package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/mindchat/backend/internal/handler/chat"
	modeHandler "github.com/zhouzirui/mindchat/backend/internal/handler/mode"
	"github.com/zhouzirui/mindchat/backend/internal/handler/page"
	"github.com/zhouzirui/mindchat/backend/internal/handler/stream"
	"github.com/zhouzirui/mindchat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/mindchat/backend/internal/middleware"
	htmlrender "github.com/zhouzirui/mindchat/backend/internal/render/html"
	chatService "github.com/zhouzirui/mindchat/backend/internal/service/chat"
	"github.com/zhouzirui/mindchat/backend/pkg/utils"
)

// Options tunes optional router behaviour.
type Options struct {
	// SessionTTL bounds the page session cookie.
	SessionTTL time.Duration
	// RateLimiter, when set, guards every route that reaches the assistant.
	RateLimiter *middlewarePkg.RateLimiter
}

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, pages *htmlrender.Renderer, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	limit := func(next http.Handler) http.Handler { return next }
	if opts.RateLimiter != nil {
		limit = opts.RateLimiter.Middleware
	}

	modesHandler := modeHandler.New(chatSvc.Modes())
	chatHandler := chat.New(chatSvc)
	streamHandler := stream.New(chatSvc)
	wsHandler := ws.New(chatSvc, chatSvc.Modes())
	pageHandler := page.New(chatSvc, pages, opts.SessionTTL)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		modesHandler.RegisterRoutes(api)

		api.Group(func(limited chi.Router) {
			limited.Use(limit)
			chatHandler.RegisterRoutes(limited)
			streamHandler.RegisterRoutes(limited)
			wsHandler.RegisterRoutes(limited)
		})
	})

	r.Group(func(web chi.Router) {
		web.Use(limit)
		pageHandler.RegisterRoutes(web)
	})

	return r
}
