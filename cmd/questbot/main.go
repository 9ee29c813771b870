// Package main is the entry point for the FOCUS quest bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"focus-quest-bot/internal/api"
	"focus-quest-bot/internal/bot"
	"focus-quest-bot/internal/config"
	"focus-quest-bot/internal/effect"
	"focus-quest-bot/internal/pkg/db"
	"focus-quest-bot/internal/pkg/lock"
	"focus-quest-bot/internal/quest"
	"focus-quest-bot/internal/repository"
	"focus-quest-bot/internal/service"
	"focus-quest-bot/internal/session"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Redis backs the leaderboard and the API rate limiter. The bot keeps
	// running without it on local balances.
	var leaderboard *repository.Leaderboard
	rdb, err := db.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, leaderboard falls back to local balances")
	} else {
		defer rdb.Close()
		leaderboard = repository.NewLeaderboard(rdb, cfg.Redis.Key)
	}

	profileRepo := repository.NewProfileRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	mentionRepo := repository.NewMentionRepository(dbPool.Pool)
	followRepo := repository.NewFollowRepository(dbPool.Pool)
	sink := &repository.EffectSink{
		Profiles:     profileRepo,
		Follows:      followRepo,
		Transactions: txRepo,
		Mentions:     mentionRepo,
		Leaderboard:  leaderboard,
	}

	// Outbound effects
	queue := effect.NewQueue(cfg.Effects.QueueSize)
	worker := effect.NewWorker(queue, sink, lock.NewUserLock(), effect.WorkerConfig{
		Workers:         cfg.Effects.Workers,
		InitialInterval: cfg.Effects.InitialInterval,
		MaxInterval:     cfg.Effects.MaxInterval,
		MaxElapsedTime:  cfg.Effects.MaxElapsedTime,
		AttemptTimeout:  cfg.Effects.AttemptTimeout,
	})
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	worker.Start(workerCtx)

	// Quest engine
	world := session.NewWorld(cfg.Quest.MaxPinned)
	manager := service.NewManager(world, session.Options{
		DonationAmount: cfg.Quest.DonationAmount,
		Quest: quest.Options{
			LikesThreshold:   cfg.Quest.LikesThreshold,
			CommentThreshold: cfg.Quest.CommentThreshold,
		},
		Scheduler: quest.NewScheduler(cfg.Quest.Location()),
	}, queue)

	var board service.LeaderboardReader
	if leaderboard != nil {
		board = leaderboard
	}
	rankingService := service.NewRankingService(manager, board)

	log.Info().
		Str("timezone", cfg.Quest.Location().String()).
		Int64("donation_amount", cfg.Quest.DonationAmount).
		Int("max_pinned", cfg.Quest.MaxPinned).
		Msg("Quest engine ready")

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		Manager:        manager,
		RankingService: rankingService,
		Profiles:       profileRepo,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	var server *http.Server
	if cfg.HTTP.Enabled {
		server = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.NewRouter(apiDependencies(cfg, manager, rankingService, txRepo, mentionRepo, profileRepo, followRepo, dbPool, rdb, queue)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP API listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP API stopped")
			}
		}()
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP API shutdown incomplete")
		}
		cancelShutdown()
	}

	// No transitions run after the bot stops, so the queue can be closed
	// and drained.
	queue.Close()
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Effects.DrainTimeout)
	if err := worker.Wait(drainCtx); err != nil {
		log.Warn().Err(err).Int("pending", queue.Len()).Msg("Effect queue not fully drained")
		stopWorkers()
	}
	cancelDrain()

	stats := worker.Stats()
	log.Info().
		Int64("applied", stats.Applied).
		Int64("retried", stats.Retried).
		Int64("dropped", stats.Dropped).
		Msg("Shutdown complete")
}

func apiDependencies(
	cfg *config.Config,
	manager *service.Manager,
	ranking *service.RankingService,
	txRepo *repository.TransactionRepository,
	mentionRepo *repository.MentionRepository,
	profileRepo *repository.ProfileRepository,
	followRepo *repository.FollowRepository,
	dbPool *db.Pool,
	rdb *redis.Client,
	queue *effect.Queue,
) api.Dependencies {
	deps := api.Dependencies{
		Manager:      manager,
		Ranking:      ranking,
		Transactions: txRepo,
		Mentions:     mentionRepo,
		Profiles:     profileRepo,
		Follows:      followRepo,
		AllowOrigins: cfg.HTTP.AllowOrigins,
		Checks:       map[string]api.HealthChecker{"postgres": dbPool.HealthCheck},
		QueueLen:     queue.Len,
	}
	if rdb != nil {
		deps.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		if cfg.HTTP.RateLimit > 0 {
			deps.Limiter = api.NewRateLimiter(rdb, cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
		}
	}
	return deps
}
