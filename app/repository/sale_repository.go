package repository

import (
	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Create inserts the sale and its items in one statement group.
func (r *saleRepository) Create(sale *models.Sale) error {
	return r.db.Create(sale).Error
}

func (r *saleRepository) GetByID(tenantID, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.Preload("Items").Where("tenant_id = ? AND id = ?", tenantID, id).First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

type commissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

func (r *commissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

func (r *commissionRepository) ListByUser(tenantID, userID uint, limit int) ([]models.Commission, error) {
	var out []models.Commission
	q := r.db.Where("tenant_id = ? AND user_id = ?", tenantID, userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
