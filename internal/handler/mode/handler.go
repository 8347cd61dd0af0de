package mode

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	"github.com/zhouzirui/mindchat/backend/pkg/utils"
)

// Handler serves the therapy mode catalogue.
type Handler struct {
	modes mode.Store
}

// New creates a mode handler.
func New(modes mode.Store) *Handler {
	return &Handler{modes: modes}
}

// RegisterRoutes registers mode routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/modes", h.handleListModes)
}

func (h *Handler) handleListModes(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.modes.List())
}
