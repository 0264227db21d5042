package entitlements

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cellsync/cellsync/app/models"
)

type PlanSlug string

const (
	PlanBasico       PlanSlug = "basico"
	PlanProfissional PlanSlug = "profissional"
	PlanEmpresarial  PlanSlug = "empresarial"
)

var (
	ErrPlanLimitReached = errors.New("plan limit reached")
	ErrTenantInactive   = errors.New("tenant is not active")
	ErrStorageQuota     = errors.New("storage quota exceeded")
)

// NormalizePlan maps free text to a known slug, defaulting to basico.
func NormalizePlan(slug string) PlanSlug {
	switch PlanSlug(strings.ToLower(strings.TrimSpace(slug))) {
	case PlanProfissional:
		return PlanProfissional
	case PlanEmpresarial:
		return PlanEmpresarial
	default:
		return PlanBasico
	}
}

// Rank orders plans for upgrade/downgrade decisions.
func Rank(slug string) int {
	switch NormalizePlan(slug) {
	case PlanEmpresarial:
		return 2
	case PlanProfissional:
		return 1
	default:
		return 0
	}
}

// CanAddUser reports whether a tenant with current users may add one more.
func CanAddUser(plan *models.Plan, current int64) bool {
	if plan == nil {
		return false
	}
	return plan.UnlimitedUsers() || current < int64(plan.MaxUsers)
}

// CanAddProduct reports whether a tenant with current products may add one more.
func CanAddProduct(plan *models.Plan, current int64) bool {
	return RemainingProducts(plan, current) > 0
}

// RemainingProducts is how many products still fit, or models.Unlimited.
func RemainingProducts(plan *models.Plan, current int64) int64 {
	if plan == nil {
		return 0
	}
	if plan.UnlimitedProducts() {
		return models.Unlimited
	}
	left := int64(plan.MaxProducts) - current
	if left < 0 {
		return 0
	}
	return left
}

// StorageQuotaBytes converts the plan's MB quota; unlimited plans return -1.
func StorageQuotaBytes(plan *models.Plan) int64 {
	if plan == nil {
		return 0
	}
	if plan.MaxStorageMB >= models.Unlimited {
		return -1
	}
	return int64(plan.MaxStorageMB) * 1024 * 1024
}

// TenantUsable gates writes on tenant status.
func TenantUsable(status string) bool {
	return status == models.TenantStatusActive || status == models.TenantStatusTrial
}

// EnsureCanAddProducts checks that n more products fit the plan.
func EnsureCanAddProducts(tenant *models.Tenant, plan *models.Plan, current int64, n int) error {
	if tenant != nil && !TenantUsable(tenant.Status) {
		return fmt.Errorf("%w: status %s", ErrTenantInactive, tenant.Status)
	}
	if left := RemainingProducts(plan, current); int64(n) > left {
		return fmt.Errorf("%w: %d of %d products left", ErrPlanLimitReached, left, n)
	}
	return nil
}

// EnsureCanAddUser checks the tenant status and the plan's user limit.
func EnsureCanAddUser(tenant *models.Tenant, plan *models.Plan, current int64) error {
	if tenant != nil && !TenantUsable(tenant.Status) {
		return fmt.Errorf("%w: status %s", ErrTenantInactive, tenant.Status)
	}
	if !CanAddUser(plan, current) {
		return fmt.Errorf("%w: %d users", ErrPlanLimitReached, current)
	}
	return nil
}

// EnsureWithinStorage checks that a file of size bytes fits the plan quota.
func EnsureWithinStorage(plan *models.Plan, size int64) error {
	quota := StorageQuotaBytes(plan)
	if quota >= 0 && size > quota {
		return fmt.Errorf("%w: %d bytes over a %d byte quota", ErrStorageQuota, size, quota)
	}
	return nil
}
