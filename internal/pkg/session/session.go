package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cellsync/cellsync/internal/pkg/cache"
	"github.com/cellsync/cellsync/internal/pkg/env"
)

const (
	DefaultCookieName = "app_session_id"
	DefaultTTL        = 7 * 24 * time.Hour

	revokedKeyPrefix = "session:revoked:"
)

var (
	ErrNoSession    = errors.New("no session cookie")
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevoked      = errors.New("session revoked")
)

// Claims is the payload of the session JWT.
type Claims struct {
	UserID uint `json:"userId"`
	jwt.RegisteredClaims
}

// Manager issues and verifies session tokens carried in a cookie.
type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	redis      *redis.Client
	now        func() time.Time
}

func NewManager(secret []byte, cookieName string, ttl time.Duration, secure bool, rdb *redis.Client) *Manager {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret:     secret,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		redis:      rdb,
		now:        time.Now,
	}
}

var manager *Manager

// SetupSessions builds the process-wide manager from the environment. In prod
// a missing JWT_SECRET is fatal; in dev a random secret is generated.
func SetupSessions() *Manager {
	secret := []byte(env.GetEnv("JWT_SECRET", ""))
	if len(secret) == 0 {
		if !env.IsDev() {
			log.Fatal("[Session] JWT_SECRET must be set in production")
		}
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatalf("[Session] could not generate development secret: %v", err)
		}
		log.Warnf("[Session] JWT_SECRET not set, using random development secret %s", base64.StdEncoding.EncodeToString(secret)[:8]+"...")
	}
	manager = NewManager(secret, env.GetEnv("SESSION_COOKIE_NAME", DefaultCookieName), DefaultTTL, !env.IsDev(), cache.GetClient())
	return manager
}

func GetManager() *Manager {
	return manager
}

// SetManager replaces the process-wide manager (tests).
func SetManager(m *Manager) {
	manager = m
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// Issue signs a new token for the user.
func (m *Manager) Issue(userID uint) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, claims, nil
}

// Parse verifies signature, expiry and revocation.
func (m *Manager) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	now := m.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if m.redis != nil {
		n, err := m.redis.Exists(ctx, revokedKeyPrefix+claims.ID).Result()
		if err != nil {
			log.Warnf("[Session] revocation lookup failed: %v", err)
		} else if n > 0 {
			return nil, ErrRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token id until the token would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if m.redis == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.redis.Set(ctx, revokedKeyPrefix+claims.ID, "1", ttl).Err()
}

// SetCookie stores the token as an HttpOnly cookie.
func (m *Manager) SetCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  m.now().Add(m.ttl),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (m *Manager) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// FromRequest parses the session cookie of the request.
func (m *Manager) FromRequest(c *fiber.Ctx) (*Claims, error) {
	raw := c.Cookies(m.cookieName)
	if raw == "" {
		return nil, ErrNoSession
	}
	return m.Parse(c.UserContext(), raw)
}
