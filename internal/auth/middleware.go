package auth

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/votepulse/internal/domain"
	apperrors "github.com/pscheid92/votepulse/internal/errors"
)

// ContextKey is where the verified identity lives in the Echo context.
const ContextKey = "identity"

// TokenFromRequest extracts the credential from the auth cookie or the
// Authorization header, in that order. Returns "" when absent.
func TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// RequireAuth verifies the credential and stores the identity in the
// request context. Missing, invalid, and expired credentials are 401s.
func (s *TokenService) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := TokenFromRequest(c)
		if token == "" {
			return apperrors.UnauthorizedError("authentication required")
		}

		identity, err := s.Verify(token)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				return apperrors.UnauthorizedError("token expired")
			}
			return apperrors.UnauthorizedError("invalid token")
		}

		c.Set(ContextKey, identity)
		c.Set("userID", identity.UserID)
		return next(c)
	}
}

// RequireAdmin is RequireAuth plus an is_admin gate.
func (s *TokenService) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return s.RequireAuth(func(c echo.Context) error {
		identity, ok := IdentityFromContext(c)
		if !ok || !identity.IsAdmin {
			return apperrors.ForbiddenError("admin access required")
		}
		return next(c)
	})
}

// IdentityFromContext returns the verified identity set by RequireAuth.
func IdentityFromContext(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(ContextKey).(domain.Identity)
	return identity, ok
}
