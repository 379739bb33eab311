package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/votepulse/internal/app"
	"github.com/pscheid92/votepulse/internal/auth"
	"github.com/pscheid92/votepulse/internal/broadcast"
	"github.com/pscheid92/votepulse/internal/config"
	"github.com/pscheid92/votepulse/internal/domain"
	apperrors "github.com/pscheid92/votepulse/internal/errors"
	goredis "github.com/redis/go-redis/v9"
)

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	app        *app.Service
	hub        *broadcast.Hub
	tokens     *auth.TokenService
	subscriber domain.VoteSubscriber
	clock      clockwork.Clock
	startTime  time.Time

	redisClient *goredis.Client
	pool        *pgxpool.Pool

	// SSE capacity on this instance
	sseClients atomic.Int64

	limiters *voteLimiters

	// Test seams; production uses redisClient/pool directly
	redisHealthCheck    redisHealthChecker
	postgresHealthCheck postgresHealthChecker
}

func NewServer(
	cfg *config.Config,
	appService *app.Service,
	hub *broadcast.Hub,
	tokens *auth.TokenService,
	subscriber domain.VoteSubscriber,
	redisClient *goredis.Client,
	pool *pgxpool.Pool,
	clock clockwork.Clock,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		app:         appService,
		hub:         hub,
		tokens:      tokens,
		subscriber:  subscriber,
		clock:       clock,
		startTime:   clock.Now(),
		redisClient: redisClient,
		pool:        pool,
		limiters:    newVoteLimiters(cfg.VoteRatePerMinute),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
