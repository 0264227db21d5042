package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/session"
	"github.com/cellsync/cellsync/internal/pkg/tenancy"
	"github.com/cellsync/cellsync/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session cookie into a UserContext for
// every request. Missing, invalid or revoked sessions leave the request
// anonymous.
func UserContextMiddleware(sessions *session.Manager, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(usercontext.LocalsUserContext, usercontext.UserContext{})

		claims, err := sessions.FromRequest(c)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				log.Debugf("[Session] rejected session cookie: %v", err)
			}
			return c.Next()
		}

		user, err := users.GetByID(claims.UserID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Errorf("[Session] failed to load user %d: %v", claims.UserID, err)
			}
			return c.Next()
		}
		if !user.Active {
			return c.Next()
		}

		c.Locals(usercontext.LocalsUserContext, usercontext.FromUser(user))
		c.Locals(usercontext.LocalsClaims, claims)
		return c.Next()
	}
}

// TenantContextMiddleware stores the effective tenant id. A master admin's
// impersonation cookie is honoured only when it names an existing tenant.
func TenantContextMiddleware(tenants repository.TenantRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn {
			c.Locals(usercontext.LocalsTenantID, models.MasterTenantID)
			return c.Next()
		}

		var active uint
		if uc.IsMasterAdmin() {
			if id := tenancy.ActiveTenantFromCookie(c); id != 0 {
				if _, err := tenants.GetByID(id); err == nil {
					active = id
				} else {
					tenancy.ClearSwitchCookie(c)
				}
			}
		}

		c.Locals(usercontext.LocalsTenantID, tenancy.ResolveTenantID(uc.Role, uc.TenantID, active))
		return c.Next()
	}
}
