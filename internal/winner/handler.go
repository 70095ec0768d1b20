package winner

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/movevote/movevote/internal/platform/httpx"
	"github.com/movevote/movevote/internal/shared"
)

// Handler wires winner and history endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler constructs a winner HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (h *Handler) WithNow(now func() time.Time) *Handler {
	h.now = now
	return h
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/winners", h.list)
	r.Get("/api/history", h.history)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	monthYear := r.URL.Query().Get("monthYear")
	if monthYear == "" {
		monthYear = shared.PeriodKey(h.now())
	}
	if !shared.ValidPeriod(monthYear) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid monthYear")
		return
	}

	entries, err := h.service.List(r.Context(), monthYear)
	if err != nil {
		h.logger.Error("list winners", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"monthYear":  monthYear,
		"monthLabel": shared.MonthLabel(monthYear),
		"winners":    entries,
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	periods, err := h.service.History(r.Context())
	if err != nil {
		h.logger.Error("list history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": periods})
}
