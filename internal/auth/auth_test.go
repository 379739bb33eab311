package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func testUser() *domain.User {
	return &domain.User{ID: 7, Username: "alice", IsAdmin: false}
}

func TestMintAndVerify(t *testing.T) {
	svc := NewTokenService(testSecret, clockwork.NewFakeClock())

	token, err := svc.Mint(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 7, identity.UserID)
	assert.Equal(t, "alice", identity.Username)
	assert.False(t, identity.IsAdmin)
}

func TestVerify_Expired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := NewTokenService(testSecret, clock)

	token, err := svc.Mint(testUser())
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	clock := clockwork.NewFakeClock()
	token, err := NewTokenService(testSecret, clock).Mint(testUser())
	require.NoError(t, err)

	_, err = NewTokenService("another-secret-9876543210", clock).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Garbage(t *testing.T) {
	svc := NewTokenService(testSecret, clockwork.NewFakeClock())
	_, err := svc.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func newAuthedContext(t *testing.T, token string, useHeader bool) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		if useHeader {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		} else {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		}
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireAuth_CookieToken(t *testing.T) {
	svc := NewTokenService(testSecret, clockwork.NewFakeClock())
	token, err := svc.Mint(testUser())
	require.NoError(t, err)

	c, _ := newAuthedContext(t, token, false)

	called := false
	err = svc.RequireAuth(func(c echo.Context) error {
		called = true
		identity, ok := IdentityFromContext(c)
		require.True(t, ok)
		assert.Equal(t, "alice", identity.Username)
		return nil
	})(c)

	require.NoError(t, err)
	assert.True(t, called)
}

func TestRequireAuth_BearerToken(t *testing.T) {
	svc := NewTokenService(testSecret, clockwork.NewFakeClock())
	token, err := svc.Mint(testUser())
	require.NoError(t, err)

	c, _ := newAuthedContext(t, token, true)

	err = svc.RequireAuth(func(c echo.Context) error { return nil })(c)
	assert.NoError(t, err)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	svc := NewTokenService(testSecret, clockwork.NewFakeClock())
	c, _ := newAuthedContext(t, "", false)

	err := svc.RequireAuth(func(c echo.Context) error {
		t.Fatal("handler must not be called")
		return nil
	})(c)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication required")
}

func TestRequireAdmin_RejectsNonAdmin(t *testing.T) {
	svc := NewTokenService(testSecret, clockwork.NewFakeClock())
	token, err := svc.Mint(testUser())
	require.NoError(t, err)

	c, _ := newAuthedContext(t, token, false)

	err = svc.RequireAdmin(func(c echo.Context) error {
		t.Fatal("handler must not be called")
		return nil
	})(c)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin access required")
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	svc := NewTokenService(testSecret, clockwork.NewFakeClock())
	token, err := svc.Mint(&domain.User{ID: 1, Username: "root", IsAdmin: true})
	require.NoError(t, err)

	c, _ := newAuthedContext(t, token, false)

	called := false
	err = svc.RequireAdmin(func(c echo.Context) error {
		called = true
		return nil
	})(c)

	require.NoError(t, err)
	assert.True(t, called)
}
