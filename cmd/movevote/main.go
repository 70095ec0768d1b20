package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/movevote/movevote/internal/access"
	"github.com/movevote/movevote/internal/adminops"
	"github.com/movevote/movevote/internal/app"
	"github.com/movevote/movevote/internal/auth"
	"github.com/movevote/movevote/internal/discord"
	"github.com/movevote/movevote/internal/observability"
	"github.com/movevote/movevote/internal/phase"
	"github.com/movevote/movevote/internal/platform/cache"
	"github.com/movevote/movevote/internal/platform/db"
	"github.com/movevote/movevote/internal/shared"
	"github.com/movevote/movevote/internal/submission"
	"github.com/movevote/movevote/internal/tradeport"
	"github.com/movevote/movevote/internal/vote"
	"github.com/movevote/movevote/internal/winner"
	"github.com/movevote/movevote/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "movevote_session", cfg.SessionTTL, cfg.IsProduction())

	gate := access.NewGate(access.NewBlockedRepository(pool), access.Config{
		AdminIDs:        cfg.AdminIDs(),
		RequiredRoleIDs: cfg.RoleIDs(),
	})

	discordClient := discord.NewClient(discord.Config{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURI:  cfg.DiscordRedirectURI,
		GuildID:      cfg.DiscordGuildID,
	})

	authService := auth.NewService(discordClient, auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, gate, sessionManager)

	phaseService := phase.NewService(phase.NewOverrideRepository(pool), logger)
	phaseHandler := phase.NewHandler(logger, phaseService)

	tradeportClient := tradeport.NewClient(tradeport.Config{
		APIKey:  cfg.TradeportAPIKey,
		APIUser: cfg.TradeportAPIUser,
	})

	voteCache := vote.NewCache(redisClient, time.Minute)
	voteRepo := vote.NewRepository(pool)
	voteService := vote.NewService(voteRepo, gate, phaseService, voteCache, cfg.MaxVotes)
	voteHandler := vote.NewHandler(logger, voteService, app.MutationRateLimit())

	submissionRepo := submission.NewRepository(pool)
	submissionService := submission.NewService(submissionRepo, gate, phaseService, tradeportClient, voteService)
	submissionHandler := submission.NewHandler(logger, submissionService, app.MutationRateLimit())

	winnerLock := shared.NewPeriodLock(redisClient, 5*time.Minute)
	winnerService := winner.NewService(winner.NewRepository(pool), winnerLock, logger, cfg.WinnersTopN)
	winnerHandler := winner.NewHandler(logger, winnerService)

	queue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init task queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	adminService := adminops.NewService(adminops.NewRepository(pool), gate, phaseService,
		access.NewBlockedRepository(pool), voteService, queue, logger)
	adminHandler := adminops.NewHandler(logger, adminService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()
	metrics.Registerer().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		PhaseHandler:      phaseHandler,
		SubmissionHandler: submissionHandler,
		VoteHandler:       voteHandler,
		WinnerHandler:     winnerHandler,
		AdminHandler:      adminHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
		Pool:              pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
