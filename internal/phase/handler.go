package phase

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/movevote/movevote/internal/platform/httpx"
)

// Handler exposes the phase query endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a phase HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/phase", h.getPhase)
}

func (h *Handler) getPhase(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Current(r.Context())
	if err != nil {
		h.logger.Error("phase query", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}
