package vote

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/movevote/movevote/internal/platform/httpx"
	"github.com/movevote/movevote/internal/shared"
)

// Handler wires the vote toggle endpoint.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	limiter  func(http.Handler) http.Handler
}

// NewHandler constructs a vote HTTP handler.
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
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Post("/api/votes", h.toggle)
	})
}

type toggleRequest struct {
	CollectionID string `json:"collectionId" validate:"required,uuid4"`
	MonthYear    string `json:"monthYear" validate:"omitempty,len=7"`
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	user := shared.UserFromContext(r.Context())
	if user == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	var req toggleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.Toggle(r.Context(), *user, req.MonthYear, req.CollectionID)
	if err != nil {
		h.logger.Warn("vote rejected",
			slog.String("discord_id", user.DiscordID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"action":         result.Action,
		"votesRemaining": result.VotesRemaining,
		"maxVotes":       h.service.MaxVotes(),
	})
}
