package usercontext

import (
	"github.com/cellsync/cellsync/app/models"
	"github.com/gofiber/fiber/v2"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TenantID   uint   `json:"tenant_id"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// FromUser builds the context of a logged-in user.
func FromUser(u *models.User) UserContext {
	return UserContext{
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		TenantID:   u.EffectiveTenantID(),
		IsLoggedIn: true,
	}
}

func (u UserContext) IsMasterAdmin() bool {
	return u.IsLoggedIn && u.Role == models.ROLE_MASTER_ADMIN
}

func (u UserContext) HasRole(roles ...string) bool {
	if !u.IsLoggedIn {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(LocalsUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetTenantID returns the effective tenant resolved by the tenant middleware,
// falling back to the master tenant.
func GetTenantID(c *fiber.Ctx) uint {
	if id, ok := c.Locals(LocalsTenantID).(uint); ok && id != 0 {
		return id
	}
	return models.MasterTenantID
}
