package repository

import (
	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

type serviceOrderRepository struct {
	db *gorm.DB
}

func NewServiceOrderRepository(db *gorm.DB) ServiceOrderRepository {
	return &serviceOrderRepository{db: db}
}

func (r *serviceOrderRepository) Create(order *models.ServiceOrder) error {
	return r.db.Create(order).Error
}

func (r *serviceOrderRepository) GetByID(tenantID, id uint) (*models.ServiceOrder, error) {
	var order models.ServiceOrder
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus writes status and completion time, scoped to the order's tenant.
func (r *serviceOrderRepository) UpdateStatus(order *models.ServiceOrder) error {
	res := r.db.Model(&models.ServiceOrder{}).
		Where("tenant_id = ? AND id = ?", order.TenantID, order.ID).
		Updates(map[string]interface{}{
			"status":       order.Status,
			"completed_at": order.CompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
