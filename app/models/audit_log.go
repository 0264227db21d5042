package models

import (
	"encoding/json"
	"time"
)

// AuditLog records who did what to which entity.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"not null;default:1;index" json:"tenant_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Action    string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Entity    string    `gorm:"type:varchar(100);not null" json:"entity"`
	EntityID  string    `gorm:"type:varchar(64)" json:"entity_id"`
	Changes   string    `gorm:"type:json" json:"changes,omitempty"`
	IPAddress string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent string    `gorm:"type:text" json:"user_agent"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// NewAuditLog encodes changes as JSON. A nil map stores SQL NULL semantics as "".
func NewAuditLog(tenantID uint, userID *uint, action, entity, entityID string, changes map[string]any) *AuditLog {
	entry := &AuditLog{
		TenantID: tenantID,
		UserID:   userID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	}
	if len(changes) > 0 {
		if b, err := json.Marshal(changes); err == nil {
			entry.Changes = string(b)
		}
	}
	return entry
}
