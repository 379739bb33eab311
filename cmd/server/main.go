package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/app"
	"github.com/pscheid92/votepulse/internal/auth"
	"github.com/pscheid92/votepulse/internal/broadcast"
	"github.com/pscheid92/votepulse/internal/config"
	"github.com/pscheid92/votepulse/internal/database"
	"github.com/pscheid92/votepulse/internal/logging"
	"github.com/pscheid92/votepulse/internal/metrics"
	"github.com/pscheid92/votepulse/internal/redis"
	"github.com/pscheid92/votepulse/internal/server"
	"github.com/pscheid92/votepulse/internal/version"
	goredis "github.com/redis/go-redis/v9"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, hub *broadcast.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	build := version.Get()
	metrics.BuildInfo.WithLabelValues(build.Version, build.Commit, build.BuildTime, build.GoVersion).Set(1)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	// Redis-backed ports
	queue := redis.NewVoteQueue(redisClient, cfg.QueueKey, cfg.DeadLetterKey)
	voteBroadcast := redis.NewVoteBroadcast(redisClient, cfg.BroadcastChannel)
	debouncer := redis.NewDebouncer(redisClient, cfg.VoteDebounceWindow)

	// Postgres repositories
	competitionRepo := database.NewCompetitionRepo(pool)
	voteRepo := database.NewVoteRepo(pool)
	userRepo := database.NewUserRepo(pool)

	tokens := auth.NewTokenService(cfg.JWTSecret, clock)
	appSvc := app.NewService(competitionRepo, voteRepo, userRepo, queue, voteBroadcast, debouncer, tokens, clock)

	// One shared subscription feeds the websocket hub; SSE clients
	// subscribe individually.
	hubSub, err := voteBroadcast.Subscribe(context.Background())
	if err != nil {
		slog.Error("Failed to subscribe to vote updates", "error", err)
		os.Exit(1)
	}
	hub := broadcast.NewHub(hubSub, clock, cfg.MaxClientsPerStream)

	srv := server.NewServer(cfg, appSvc, hub, tokens, voteBroadcast, redisClient, pool, clock)

	done := runGracefulShutdown(srv, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
