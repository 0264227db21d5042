package repository

import (
	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Record(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

func (r *auditLogRepository) ListByTenant(tenantID uint, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
