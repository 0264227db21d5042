package repository

import (
	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepository) CreateBatch(products []models.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.CreateInBatches(&products, batchSize).Error
}

func (r *productRepository) GetBySKU(tenantID uint, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("tenant_id = ? AND sku = ?", tenantID, sku).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetByID(tenantID, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ExistingSKUs returns the subset of skus already stored for the tenant.
func (r *productRepository) ExistingSKUs(tenantID uint, skus []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(skus) == 0 {
		return found, nil
	}
	var rows []string
	err := r.db.Model(&models.Product{}).
		Where("tenant_id = ? AND sku IN ?", tenantID, skus).
		Pluck("sku", &rows).Error
	if err != nil {
		return nil, err
	}
	for _, sku := range rows {
		found[sku] = true
	}
	return found, nil
}

func (r *productRepository) CountByTenant(tenantID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Product{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, err
}

func (r *productRepository) ListLowStock(tenantID uint, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Where("tenant_id = ? AND active = ? AND current_stock <= min_stock", tenantID, true).
		Order("current_stock ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}
