package submission

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/movevote/movevote/internal/platform/httpx"
	"github.com/movevote/movevote/internal/shared"
)

// Handler wires submission and collection-listing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	limiter  func(http.Handler) http.Handler
}

// NewHandler constructs a submission HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, limiter func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		limiter:  limiter,
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/collections", h.listCollections)
	r.Get("/api/submissions", h.listSubmissions)
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Post("/api/submissions", h.submit)
	})
}

type submitRequest struct {
	ContractAddress string `json:"contractAddress" validate:"required"`
	MonthYear       string `json:"monthYear" validate:"omitempty,len=7"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	user := shared.UserFromContext(r.Context())
	if user == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	detail, err := h.service.Submit(r.Context(), *user, req.MonthYear, req.ContractAddress)
	if err != nil {
		h.logger.Warn("submission rejected",
			slog.String("discord_id", user.DiscordID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "submission": detail})
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	monthYear := r.URL.Query().Get("monthYear")
	if !shared.ValidPeriod(monthYear) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "monthYear required")
		return
	}

	details, err := h.service.List(r.Context(), monthYear)
	if err != nil {
		h.logger.Error("list submissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"submissions": details})
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	monthYear := r.URL.Query().Get("monthYear")
	if !shared.ValidPeriod(monthYear) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "monthYear required")
		return
	}

	listing, err := h.service.ListCollections(r.Context(), monthYear, shared.UserFromContext(r.Context()))
	if err != nil {
		h.logger.Error("list collections", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}
