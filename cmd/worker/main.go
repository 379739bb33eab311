package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pscheid92/votepulse/internal/config"
	"github.com/pscheid92/votepulse/internal/consumer"
	"github.com/pscheid92/votepulse/internal/database"
	"github.com/pscheid92/votepulse/internal/logging"
	"github.com/pscheid92/votepulse/internal/metrics"
	"github.com/pscheid92/votepulse/internal/redis"
	"github.com/pscheid92/votepulse/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Worker starting", "env", cfg.AppEnv)

	build := version.Get()
	metrics.BuildInfo.WithLabelValues(build.Version, build.Commit, build.BuildTime, build.GoVersion).Set(1)

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSetup()

	pool, err := database.Connect(setupCtx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(setupCtx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.NewClient(setupCtx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	queue := redis.NewVoteQueue(redisClient, cfg.QueueKey, cfg.DeadLetterKey)
	voteRepo := database.NewVoteRepo(pool)

	c := consumer.New(queue, voteRepo, consumer.Options{
		MaxAttempts:    cfg.PersistMaxAttempts,
		InitialBackoff: cfg.PersistBackoff,
	})

	// SIGTERM cancels the drain loop; the entry already in flight is
	// still persisted before Run returns.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Run(ctx); err != nil {
		slog.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Worker stopped")
}
