package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationLowStock     = "low_stock"
	NotificationServiceOrder = "service_order"
	NotificationBilling      = "billing"
	NotificationSystem       = "system"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"not null;default:1;index" json:"tenant_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Type      string    `gorm:"type:varchar(50)" json:"type" validate:"oneof=low_stock service_order billing system"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// MarkAsRead marks the notification as read.
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification stores a tenant-wide (userID nil) or personal notification.
func CreateNotification(db *gorm.DB, tenantID uint, userID *uint, notificationType, title, message string) error {
	return db.Create(&Notification{
		TenantID: tenantID,
		UserID:   userID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
	}).Error
}
