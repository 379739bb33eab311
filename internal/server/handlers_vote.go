package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/votepulse/internal/auth"
	"github.com/pscheid92/votepulse/internal/domain"
	apperrors "github.com/pscheid92/votepulse/internal/errors"
)

type voteRequest struct {
	Vote string `json:"vote" form:"vote"`
}

type voteResponse struct {
	Success       bool         `json:"success"`
	CompetitionID int          `json:"competition_id"`
	Vote          string       `json:"vote"`
	Scores        domain.Tally `json:"scores"`
}

func (s *Server) handleVote(c echo.Context) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.UnauthorizedError("authentication required")
	}

	competitionID, err := strconv.Atoi(c.Param("competition_id"))
	if err != nil {
		return apperrors.ValidationError("competition id must be an integer")
	}

	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	tally, err := s.app.SubmitVote(c.Request().Context(), identity, competitionID, req.Vote)
	if err != nil {
		return mapVoteError(err)
	}

	return c.JSON(http.StatusOK, voteResponse{
		Success:       true,
		CompetitionID: competitionID,
		Vote:          req.Vote,
		Scores:        tally,
	})
}

func mapVoteError(err error) error {
	switch {
	case errors.Is(err, domain.ErrCompetitionNotFound):
		return apperrors.NotFoundError("competition not found")
	case errors.Is(err, domain.ErrCompetitionClosed):
		return apperrors.ForbiddenError("competition is not accepting votes")
	case errors.Is(err, domain.ErrInvalidChoice):
		return apperrors.ValidationError("vote must be 'a' or 'b'")
	case errors.Is(err, domain.ErrDuplicateVote):
		return echo.NewHTTPError(http.StatusTooManyRequests, "vote already submitted, try again shortly")
	case errors.Is(err, domain.ErrQueueUnavailable):
		return apperrors.UnavailableError("vote could not be recorded, please retry", err)
	default:
		return apperrors.InternalError("failed to submit vote", err)
	}
}

func (s *Server) handleListCompetitions(c echo.Context) error {
	competitions, err := s.app.ListCompetitions(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list competitions", err)
	}
	if competitions == nil {
		competitions = []domain.Competition{}
	}
	return c.JSON(http.StatusOK, competitions)
}

func (s *Server) handleGetCompetition(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("competition id must be an integer")
	}

	competition, err := s.app.GetCompetition(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCompetitionNotFound) {
			return apperrors.NotFoundError("competition not found")
		}
		return apperrors.InternalError("failed to load competition", err)
	}
	return c.JSON(http.StatusOK, competition)
}

type scoresResponse struct {
	CompetitionID int    `json:"competition_id"`
	Name          string `json:"name"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	Status        string `json:"status"`
	Scores        struct {
		A int `json:"a"`
		B int `json:"b"`
	} `json:"scores"`
}

func (s *Server) handleScores(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("competition id must be an integer")
	}

	competition, tally, err := s.app.Scores(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCompetitionNotFound) {
			return apperrors.NotFoundError("competition not found")
		}
		return apperrors.InternalError("failed to load scores", err)
	}

	resp := scoresResponse{
		CompetitionID: competition.ID,
		Name:          competition.Name,
		OptionA:       competition.OptionA,
		OptionB:       competition.OptionB,
		Status:        competition.Status,
	}
	resp.Scores.A = tally.A
	resp.Scores.B = tally.B
	return c.JSON(http.StatusOK, resp)
}
