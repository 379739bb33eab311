package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Account routes
	s.echo.POST("/api/register", s.handleRegister)
	s.echo.POST("/api/login", s.handleLogin)
	s.echo.POST("/api/logout", s.handleLogout)

	// Competition reads (public)
	s.echo.GET("/api/competitions", s.handleListCompetitions)
	s.echo.GET("/api/competitions/:id", s.handleGetCompetition)
	s.echo.GET("/api/competitions/:id/scores", s.handleScores)

	// Vote intake (authenticated + rate limited)
	s.echo.POST("/vote/:competition_id", s.handleVote, s.tokens.RequireAuth, s.rateLimitVotes)

	// Live update streams
	s.echo.GET("/api/user/vote-stream", s.handleVoteStream, s.tokens.RequireAuth)
	s.echo.GET("/api/admin/vote-stream", s.handleVoteStream, s.tokens.RequireAdmin)
	s.echo.GET("/ws/tally", s.handleTallySocket)

	// Admin routes
	admin := s.echo.Group("/api/admin", s.tokens.RequireAdmin)
	admin.GET("/stats", s.handleAdminStats)
	admin.POST("/competitions", s.handleCreateCompetition)
	admin.PUT("/competitions/:id", s.handleUpdateCompetition)
	admin.DELETE("/competitions/:id", s.handleDeleteCompetition)
	admin.POST("/competitions/:id/close", s.handleCloseCompetition)
	admin.POST("/competitions/:id/open", s.handleOpenCompetition)
	admin.POST("/competitions/:id/archive", s.handleArchiveCompetition)
	admin.POST("/competitions/:id/unarchive", s.handleUnarchiveCompetition)
}
