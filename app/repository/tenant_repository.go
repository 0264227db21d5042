package repository

import (
	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository instance
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

func (r *tenantRepository) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) GetBySubdomain(subdomain string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.Where("subdomain = ?", models.NormalizeSubdomain(subdomain)).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ListBySubdomain returns every row with the subdomain. More than one row
// means the unique index is missing on this database.
func (r *tenantRepository) ListBySubdomain(subdomain string) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Where("subdomain = ?", models.NormalizeSubdomain(subdomain)).Order("id ASC").Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepository) FindByStripeSubscriptionID(subscriptionID string) (*models.Tenant, error) {
	var tenant models.Tenant
	if subscriptionID == "" {
		return nil, gorm.ErrRecordNotFound
	}
	err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) List() ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Order("id ASC").Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Tenant{}).Where("id = ?", id).Update("status", status).Error
}

func (r *tenantRepository) UpdateBilling(id uint, update TenantBillingUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	fields := map[string]interface{}{}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.PlanID != nil {
		fields["plan_id"] = *update.PlanID
	}
	if update.StripeCustomerID != nil {
		fields["stripe_customer_id"] = *update.StripeCustomerID
	}
	if update.StripeSubscriptionID != nil {
		fields["stripe_subscription_id"] = *update.StripeSubscriptionID
	}
	return r.db.Model(&models.Tenant{}).Where("id = ?", id).Updates(fields).Error
}
