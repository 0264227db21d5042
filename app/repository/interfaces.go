package repository

import (
	"time"

	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

// TenantBillingUpdate carries the tenant fields a billing event may change.
// Nil fields are left untouched.
type TenantBillingUpdate struct {
	Status               *string
	PlanID               *uint
	StripeCustomerID     *string
	StripeSubscriptionID *string
}

// IsEmpty reports whether the update would change nothing.
func (u TenantBillingUpdate) IsEmpty() bool {
	return u.Status == nil && u.PlanID == nil && u.StripeCustomerID == nil && u.StripeSubscriptionID == nil
}

// TenantRepository defines the interface for tenant-related database operations
type TenantRepository interface {
	Create(tenant *models.Tenant) error
	GetByID(id uint) (*models.Tenant, error)
	GetBySubdomain(subdomain string) (*models.Tenant, error)
	ListBySubdomain(subdomain string) ([]models.Tenant, error)
	FindByStripeSubscriptionID(subscriptionID string) (*models.Tenant, error)
	List() ([]models.Tenant, error)
	UpdateStatus(id uint, status string) error
	UpdateBilling(id uint, update TenantBillingUpdate) error
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdatePassword(email, hash string) (int64, error)
	TouchLastSignedIn(id uint, at time.Time) error
	ListByRole(role string) ([]models.User, error)
	List(offset, limit int) ([]models.User, error)
	CountByTenant(tenantID uint) (int64, error)
}

// PlanRepository defines the interface for plan-related database operations
type PlanRepository interface {
	UpsertBySlug(plan *models.Plan) error
	GetBySlug(slug string) (*models.Plan, error)
	GetByID(id uint) (*models.Plan, error)
	ListActive() ([]models.Plan, error)
	List() ([]models.Plan, error)
	UpdatePricing(slug string, monthly, yearly int64) (int64, error)
	UpdateStripePrices(slug, productID, monthlyPriceID, yearlyPriceID string) error
}

// ProductRepository defines the interface for tenant-owned products
type ProductRepository interface {
	Create(product *models.Product) error
	CreateBatch(products []models.Product, batchSize int) error
	GetBySKU(tenantID uint, sku string) (*models.Product, error)
	ExistingSKUs(tenantID uint, skus []string) (map[string]bool, error)
	CountByTenant(tenantID uint) (int64, error)
	ListLowStock(tenantID uint, limit int) ([]models.Product, error)
	GetByID(tenantID, id uint) (*models.Product, error)
}

// CustomerRepository defines the interface for tenant-owned customers
type CustomerRepository interface {
	Create(customer *models.Customer) error
	GetByID(tenantID, id uint) (*models.Customer, error)
	CountByTenant(tenantID uint) (int64, error)
}

// SaleRepository stores sales together with their items
type SaleRepository interface {
	Create(sale *models.Sale) error
	GetByID(tenantID, id uint) (*models.Sale, error)
}

// CommissionRepository defines the interface for seller commissions
type CommissionRepository interface {
	Create(commission *models.Commission) error
	ListByUser(tenantID, userID uint, limit int) ([]models.Commission, error)
}

// ServiceOrderRepository defines the interface for repair orders
type ServiceOrderRepository interface {
	Create(order *models.ServiceOrder) error
	GetByID(tenantID, id uint) (*models.ServiceOrder, error)
	UpdateStatus(order *models.ServiceOrder) error
}

// NotificationRepository defines the interface for in-app notifications.
// A nil userID addresses every user of the tenant.
type NotificationRepository interface {
	Create(tenantID uint, userID *uint, notificationType, title, message string) error
	ListForUser(tenantID, userID uint, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(tenantID, userID, id uint) error
}

// SettingRepository defines the interface for system settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// AuditLogRepository defines the interface for the audit trail
type AuditLogRepository interface {
	Record(entry *models.AuditLog) error
	ListByTenant(tenantID uint, limit int) ([]models.AuditLog, error)
}

// BackupRecordRepository defines the interface for backup run bookkeeping
type BackupRecordRepository interface {
	Create(record *models.BackupRecord) error
	Update(record *models.BackupRecord) error
	ListRecent(limit int) ([]models.BackupRecord, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Tenant   TenantRepository
	User     UserRepository
	Plan     PlanRepository
	Product  ProductRepository
	Customer CustomerRepository
	Setting  SettingRepository
	AuditLog AuditLogRepository
	Backup   BackupRecordRepository

	Sale         SaleRepository
	Commission   CommissionRepository
	ServiceOrder ServiceOrderRepository
	Notification NotificationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tenant:   NewTenantRepository(db),
		User:     NewUserRepository(db),
		Plan:     NewPlanRepository(db),
		Product:  NewProductRepository(db),
		Customer: NewCustomerRepository(db),
		Setting:  NewSettingRepository(db),
		AuditLog: NewAuditLogRepository(db),
		Backup:   NewBackupRecordRepository(db),

		Sale:         NewSaleRepository(db),
		Commission:   NewCommissionRepository(db),
		ServiceOrder: NewServiceOrderRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
