package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/votepulse/internal/auth"
	"github.com/pscheid92/votepulse/internal/domain"
	apperrors "github.com/pscheid92/votepulse/internal/errors"
)

type competitionRequest struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	OptionA        string     `json:"option_a"`
	OptionB        string     `json:"option_b"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
}

func (s *Server) handleAdminStats(c echo.Context) error {
	stats, err := s.app.AdminStats(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to load stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCreateCompetition(c echo.Context) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.UnauthorizedError("authentication required")
	}

	var req competitionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	competition := &domain.Competition{
		Name:           req.Name,
		Description:    req.Description,
		OptionA:        req.OptionA,
		OptionB:        req.OptionB,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
	}
	if err := s.app.CreateCompetition(c.Request().Context(), identity, competition); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return apperrors.ValidationError(err.Error())
		}
		return apperrors.InternalError("failed to create competition", err)
	}
	return c.JSON(http.StatusCreated, competition)
}

func (s *Server) handleUpdateCompetition(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("competition id must be an integer")
	}

	var req competitionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	competition := &domain.Competition{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		OptionA:        req.OptionA,
		OptionB:        req.OptionB,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
	}
	if err := s.app.UpdateCompetition(c.Request().Context(), competition); err != nil {
		return mapAdminError(err)
	}
	return c.JSON(http.StatusOK, competition)
}

func (s *Server) handleDeleteCompetition(c echo.Context) error {
	return s.competitionAction(c, s.app.DeleteCompetition)
}

func (s *Server) handleCloseCompetition(c echo.Context) error {
	return s.competitionAction(c, s.app.CloseCompetition)
}

func (s *Server) handleOpenCompetition(c echo.Context) error {
	return s.competitionAction(c, s.app.OpenCompetition)
}

func (s *Server) handleArchiveCompetition(c echo.Context) error {
	return s.competitionAction(c, func(ctx context.Context, id int) error {
		return s.app.SetCompetitionArchived(ctx, id, true)
	})
}

func (s *Server) handleUnarchiveCompetition(c echo.Context) error {
	return s.competitionAction(c, func(ctx context.Context, id int) error {
		return s.app.SetCompetitionArchived(ctx, id, false)
	})
}

// competitionAction runs an id-addressed lifecycle operation and maps
// its errors uniformly.
func (s *Server) competitionAction(c echo.Context, action func(context.Context, int) error) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("competition id must be an integer")
	}

	if err := action(c.Request().Context(), id); err != nil {
		return mapAdminError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "competition_id": id})
}

func mapAdminError(err error) error {
	switch {
	case errors.Is(err, domain.ErrCompetitionNotFound):
		return apperrors.NotFoundError("competition not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return apperrors.ValidationError(err.Error())
	default:
		return apperrors.InternalError("competition operation failed", err)
	}
}
