package usercontext

// Shared Locals keys and cookie names used across controllers and middlewares
const (
	LocalsUserContext = "USER_CONTEXT"
	LocalsTenantID    = "TENANT_ID"
	LocalsClaims      = "SESSION_CLAIMS"

	ActiveTenantCookie = "active_tenant_id"
)
