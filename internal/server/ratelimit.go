package server

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/votepulse/internal/auth"
	"github.com/pscheid92/votepulse/internal/metrics"
	"golang.org/x/time/rate"
)

// voteLimiters holds one token bucket per user. Buckets are created on
// first use and never expire; the map is bounded by the user table.
type voteLimiters struct {
	mu       sync.Mutex
	perUser  map[int]*rate.Limiter
	perMin   int
	burstCap int
}

func newVoteLimiters(perMinute int) *voteLimiters {
	if perMinute < 1 {
		perMinute = 1
	}
	return &voteLimiters{
		perUser:  make(map[int]*rate.Limiter),
		perMin:   perMinute,
		burstCap: 5,
	}
}

func (l *voteLimiters) limiter(userID int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.perUser[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.burstCap)
		l.perUser[userID] = limiter
	}
	return limiter
}

// rateLimitVotes throttles vote submissions per user. Must run after
// RequireAuth.
func (s *Server) rateLimitVotes(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		if !s.limiters.limiter(identity.UserID).Allow() {
			metrics.VotesRejectedTotal.WithLabelValues("rate_limited").Inc()
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many votes, slow down")
		}
		return next(c)
	}
}
