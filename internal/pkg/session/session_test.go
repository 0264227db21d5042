package session

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewManager([]byte("test-secret"), "", 0, false, rdb), mr
}

func TestIssueAndParse(t *testing.T) {
	m, _ := newTestManager(t)

	token, claims, err := m.Issue(42)
	require.NoError(t, err)
	assert.Equal(t, DefaultCookieName, m.CookieName())
	assert.NotEmpty(t, claims.ID)

	parsed, err := m.Parse(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), parsed.UserID)
	assert.Equal(t, claims.ID, parsed.ID)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), parsed.ExpiresAt.Time, time.Minute)
}

func TestParseRejects(t *testing.T) {
	m, _ := newTestManager(t)
	other := NewManager([]byte("another-secret"), "", 0, false, nil)
	foreign, _, err := other.Issue(1)
	require.NoError(t, err)

	expired := NewManager([]byte("test-secret"), "", time.Hour, false, nil)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(1)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", foreign},
		{"expired", old},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRevoke(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	token, claims, err := m.Issue(7)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, claims))

	_, err = m.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrRevoked)

	ttl := mr.TTL(revokedKeyPrefix + claims.ID)
	assert.Greater(t, ttl, 6*24*time.Hour)
}

func TestCookieRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	token, _, err := m.Issue(9)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/set", func(c *fiber.Ctx) error {
		m.SetCookie(c, token)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/who", func(c *fiber.Ctx) error {
		claims, err := m.FromRequest(c)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.JSON(fiber.Map{"userId": claims.UserID})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/set", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest("GET", "/who", nil)
	req.AddCookie(cookies[0])
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/who", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
