package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cellsync/cellsync/app/models"
)

func TestNormalizePlanAndRank(t *testing.T) {
	assert.Equal(t, PlanProfissional, NormalizePlan(" Profissional "))
	assert.Equal(t, PlanBasico, NormalizePlan("gold"))
	assert.Greater(t, Rank("empresarial"), Rank("profissional"))
	assert.Equal(t, 0, Rank(""))
}

func TestLimits(t *testing.T) {
	basico := &models.Plan{MaxUsers: 2, MaxProducts: 500, MaxStorageMB: 1024}
	empresarial := &models.Plan{MaxUsers: models.Unlimited, MaxProducts: models.Unlimited, MaxStorageMB: models.Unlimited}

	tests := []struct {
		name    string
		plan    *models.Plan
		users   int64
		prods   int64
		addUser bool
		addProd bool
	}{
		{"basico under limits", basico, 1, 499, true, true},
		{"basico at limits", basico, 2, 500, false, false},
		{"unlimited", empresarial, 5000, 100000, true, true},
		{"no plan", nil, 0, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.addUser, CanAddUser(tt.plan, tt.users))
			assert.Equal(t, tt.addProd, CanAddProduct(tt.plan, tt.prods))
		})
	}

	assert.Equal(t, int64(1024*1024*1024), StorageQuotaBytes(basico))
	assert.Equal(t, int64(-1), StorageQuotaBytes(empresarial))
}

func TestEnsureCanAddProducts(t *testing.T) {
	plan := &models.Plan{MaxProducts: 10}
	active := &models.Tenant{Status: models.TenantStatusActive}
	suspended := &models.Tenant{Status: models.TenantStatusSuspended}

	assert.NoError(t, EnsureCanAddProducts(active, plan, 5, 5))
	assert.ErrorIs(t, EnsureCanAddProducts(active, plan, 5, 6), ErrPlanLimitReached)
	assert.ErrorIs(t, EnsureCanAddProducts(suspended, plan, 0, 1), ErrTenantInactive)
	assert.True(t, TenantUsable(models.TenantStatusTrial))
	assert.False(t, TenantUsable(models.TenantStatusCancelled))
}

func TestEnsureCanAddUser(t *testing.T) {
	plan := &models.Plan{MaxUsers: 2}
	active := &models.Tenant{Status: models.TenantStatusActive}

	assert.NoError(t, EnsureCanAddUser(active, plan, 1))
	assert.ErrorIs(t, EnsureCanAddUser(active, plan, 2), ErrPlanLimitReached)
	assert.ErrorIs(t, EnsureCanAddUser(&models.Tenant{Status: models.TenantStatusSuspended}, plan, 0), ErrTenantInactive)
}

func TestEnsureWithinStorage(t *testing.T) {
	small := &models.Plan{MaxStorageMB: 1}
	unlimited := &models.Plan{MaxStorageMB: models.Unlimited}

	assert.NoError(t, EnsureWithinStorage(small, 1024*1024))
	assert.ErrorIs(t, EnsureWithinStorage(small, 1024*1024+1), ErrStorageQuota)
	assert.NoError(t, EnsureWithinStorage(unlimited, 1<<40))
}
