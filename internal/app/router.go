package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/movevote/movevote/internal/adminops"
	"github.com/movevote/movevote/internal/auth"
	"github.com/movevote/movevote/internal/observability"
	"github.com/movevote/movevote/internal/phase"
	"github.com/movevote/movevote/internal/shared"
	"github.com/movevote/movevote/internal/submission"
	"github.com/movevote/movevote/internal/vote"
	"github.com/movevote/movevote/internal/winner"
	"github.com/movevote/movevote/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	AuthHandler       *auth.Handler
	PhaseHandler      *phase.Handler
	SubmissionHandler *submission.Handler
	VoteHandler       *vote.Handler
	WinnerHandler     *winner.Handler
	AdminHandler      *adminops.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
	Pool              *pgxpool.Pool
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.Metrics.Middleware)

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("healthz db ping", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}
	if params.PhaseHandler != nil {
		params.PhaseHandler.MountRoutes(r)
	}
	if params.SubmissionHandler != nil {
		params.SubmissionHandler.MountRoutes(r)
	}
	if params.VoteHandler != nil {
		params.VoteHandler.MountRoutes(r)
	}
	if params.WinnerHandler != nil {
		params.WinnerHandler.MountRoutes(r)
	}
	if params.AdminHandler != nil {
		params.AdminHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountRoutes(r)
		})
	}

	return r
}
