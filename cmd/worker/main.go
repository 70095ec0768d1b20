package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/movevote/movevote/internal/access"
	"github.com/movevote/movevote/internal/app"
	jobmetrics "github.com/movevote/movevote/internal/jobs"
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
		slog.Default().Info("test mode detected, skipping worker startup")
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

	winnerLock := shared.NewPeriodLock(redisClient, 5*time.Minute)
	winnerService := winner.NewService(winner.NewRepository(pool), winnerLock, logger, cfg.WinnersTopN)

	gate := access.NewGate(access.NewBlockedRepository(pool), access.Config{
		AdminIDs:        cfg.AdminIDs(),
		RequiredRoleIDs: cfg.RoleIDs(),
	})
	phaseService := phase.NewService(phase.NewOverrideRepository(pool), logger)
	tradeportClient := tradeport.NewClient(tradeport.Config{
		APIKey:  cfg.TradeportAPIKey,
		APIUser: cfg.TradeportAPIUser,
	})
	voteCache := vote.NewCache(redisClient, time.Minute)
	voteService := vote.NewService(vote.NewRepository(pool), gate, phaseService, voteCache, cfg.MaxVotes)
	submissionService := submission.NewService(submission.NewRepository(pool), gate, phaseService, tradeportClient, voteService)

	metrics := jobmetrics.NewMetrics(nil)

	recalcTask, err := jobs.NewWinnersRecalcTask(jobs.WinnersRecalcPayload{})
	if err != nil {
		logger.Error("build recalc task", slog.Any("error", err))
		os.Exit(1)
	}
	refreshTask, err := jobs.NewMetadataRefreshTask(jobs.MetadataRefreshPayload{})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskWinnersRecalc, Handler: jobs.NewWinnersRecalcHandler(winnerService, logger, metrics)},
			{Type: jobs.TaskMetadataRefresh, Handler: jobs.NewMetadataRefreshHandler(submissionService, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			// First of the month: snapshot the period that just closed.
			{Spec: "0 0 1 * *", Task: recalcTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
