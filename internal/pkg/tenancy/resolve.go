package tenancy

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/usercontext"
)

// ResolveTenantID picks the tenant a request operates on. A master admin works
// on the master tenant unless impersonating activeTenantID. Everyone else is
// pinned to their own tenant; a missing tenant maps to the master tenant.
func ResolveTenantID(role string, userTenantID, activeTenantID uint) uint {
	if role == models.ROLE_MASTER_ADMIN {
		if activeTenantID != 0 {
			return activeTenantID
		}
		return models.MasterTenantID
	}
	if userTenantID == 0 {
		return models.MasterTenantID
	}
	return userTenantID
}

// ActiveTenantFromCookie returns the impersonated tenant id, or 0.
func ActiveTenantFromCookie(c *fiber.Ctx) uint {
	raw := c.Cookies(usercontext.ActiveTenantCookie)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// SetSwitchCookie stores the impersonated tenant for the master admin.
func SetSwitchCookie(c *fiber.Ctx, tenantID uint) {
	c.Cookie(&fiber.Cookie{
		Name:     usercontext.ActiveTenantCookie,
		Value:    strconv.FormatUint(uint64(tenantID), 10),
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSwitchCookie drops impersonation.
func ClearSwitchCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     usercontext.ActiveTenantCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
	})
}
