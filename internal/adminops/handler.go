package adminops

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/movevote/movevote/internal/phase"
	"github.com/movevote/movevote/internal/platform/httpx"
	"github.com/movevote/movevote/internal/shared"
)

// Handler wires the admin endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs an admin HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/override-phase", h.overridePhase)
		r.Post("/clear-override", h.clearOverride)
		r.Post("/calculate-winners", h.calculateWinners)
		r.Post("/refresh-metadata", h.refreshMetadata)
		r.Post("/clear-data", h.clearData)
		r.Delete("/submissions/{id}", h.deleteSubmission)
		r.Post("/block-user", h.blockUser)
		r.Post("/unblock-user", h.unblockUser)
		r.Get("/blocked", h.listBlocked)
		r.Get("/votes", h.listVotes)
	})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) *shared.SessionUser {
	user := shared.UserFromContext(r.Context())
	if user == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return nil
	}
	return user
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

type overrideRequest struct {
	Phase         string `json:"phase" validate:"required,oneof=submission voting display"`
	MonthYear     string `json:"monthYear" validate:"omitempty,len=7"`
	DurationHours int    `json:"durationHours" validate:"omitempty,min=1,max=720"`
}

func (h *Handler) overridePhase(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	var req overrideRequest
	if !h.decode(w, r, &req) {
		return
	}

	monthYear, expiresAt, err := h.service.OverridePhase(r.Context(), *user, req.MonthYear, phase.Phase(req.Phase), req.DurationHours)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"monthYear": monthYear,
		"phase":     req.Phase,
		"expiresAt": expiresAt,
	})
}

type periodRequest struct {
	MonthYear string `json:"monthYear" validate:"omitempty,len=7"`
}

func (h *Handler) clearOverride(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	var req periodRequest
	if !h.decode(w, r, &req) {
		return
	}

	monthYear, err := h.service.ClearOverride(r.Context(), *user, req.MonthYear)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "monthYear": monthYear})
}

func (h *Handler) calculateWinners(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	var req periodRequest
	if !h.decode(w, r, &req) {
		return
	}

	monthYear, err := h.service.CalculateWinners(r.Context(), *user, req.MonthYear)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"success": true, "monthYear": monthYear})
}

func (h *Handler) refreshMetadata(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	var req periodRequest
	if !h.decode(w, r, &req) {
		return
	}

	monthYear, err := h.service.RefreshMetadata(r.Context(), *user, req.MonthYear)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"success": true, "monthYear": monthYear})
}

type clearDataRequest struct {
	MonthYear string `json:"monthYear" validate:"required,len=7"`
	Scope     string `json:"scope" validate:"required,oneof=all submissions votes winners"`
}

func (h *Handler) clearData(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	var req clearDataRequest
	if !h.decode(w, r, &req) {
		return
	}

	counts, err := h.service.ClearData(r.Context(), *user, req.MonthYear, ClearScope(req.Scope))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "cleared": counts})
}

func (h *Handler) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "submission id required")
		return
	}

	if err := h.service.DeleteSubmission(r.Context(), *user, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type blockRequest struct {
	DiscordID string `json:"discordId" validate:"required"`
	Reason    string `json:"reason" validate:"omitempty,max=500"`
}

func (h *Handler) blockUser(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	var req blockRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.BlockUser(r.Context(), *user, req.DiscordID, req.Reason); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type unblockRequest struct {
	DiscordID string `json:"discordId" validate:"required"`
}

func (h *Handler) unblockUser(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	var req unblockRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.UnblockUser(r.Context(), *user, req.DiscordID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) listBlocked(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}

	blocked, err := h.service.ListBlocked(r.Context(), *user)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"blocked": blocked})
}

func (h *Handler) listVotes(w http.ResponseWriter, r *http.Request) {
	user := h.caller(w, r)
	if user == nil {
		return
	}
	monthYear := r.URL.Query().Get("monthYear")
	if !shared.ValidPeriod(monthYear) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "monthYear required")
		return
	}

	votes, err := h.service.ListVotes(r.Context(), *user, monthYear)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"votes": votes})
}
