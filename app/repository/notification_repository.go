package repository

import (
	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(tenantID uint, userID *uint, notificationType, title, message string) error {
	return models.CreateNotification(r.db, tenantID, userID, notificationType, title, message)
}

// ListForUser returns personal and tenant-wide notifications, newest first.
func (r *notificationRepository) ListForUser(tenantID, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	var out []models.Notification
	q := r.db.Where("tenant_id = ? AND (user_id = ? OR user_id IS NULL)", tenantID, userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *notificationRepository) MarkRead(tenantID, userID, id uint) error {
	var n models.Notification
	err := r.db.Where("id = ? AND tenant_id = ? AND (user_id = ? OR user_id IS NULL)", id, tenantID, userID).
		First(&n).Error
	if err != nil {
		return err
	}
	return n.MarkAsRead(r.db)
}
