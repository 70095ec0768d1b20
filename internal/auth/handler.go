package auth

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/movevote/movevote/internal/access"
	"github.com/movevote/movevote/internal/platform/httpx"
	"github.com/movevote/movevote/internal/shared"
)

// Handler wires the OAuth login endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	gate     *access.Gate
	sessions *shared.SessionManager
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, gate *access.Gate, sessions *shared.SessionManager) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, sessions: sessions}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", h.login)
		r.Get("/callback", h.callback)
		r.Post("/logout", h.logout)
		r.Get("/session", h.session)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	state := randomState()
	sess.SetOAuthState(state)
	http.Redirect(w, r, h.service.LoginURL(state), http.StatusTemporaryRedirect)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || state != sess.PopOAuthState() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "oauth state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "code is required")
		return
	}

	user, err := h.service.CompleteLogin(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Login Failed", "identity provider rejected the login")
		return
	}

	sess.SetUser(user)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	user := shared.UserFromContext(r.Context())
	if user == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	blocked, err := h.gate.IsBlocked(r.Context(), user.DiscordID)
	if err != nil {
		h.logger.Error("blocked lookup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"authenticated":   true,
		"userId":          user.UserID,
		"discordId":       user.DiscordID,
		"username":        user.Username,
		"avatar":          user.Avatar,
		"isAdmin":         h.gate.IsAdmin(user.DiscordID),
		"hasRequiredRole": h.gate.HasRequiredRole(user.Roles),
		"isBlocked":       blocked,
	})
}

func randomState() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
