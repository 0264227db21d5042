package models

import "time"

const (
	BackupStatusRunning   = "running"
	BackupStatusCompleted = "completed"
	BackupStatusFailed    = "failed"

	BackupTriggerSchedule = "schedule"
	BackupTriggerManual   = "manual"
)

// BackupRecord tracks one database backup run.
type BackupRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TenantID     uint       `gorm:"not null;default:1;index" json:"tenant_id"`
	Trigger      string     `gorm:"type:varchar(20);not null;default:'schedule'" json:"trigger"`
	Status       string     `gorm:"type:varchar(20);not null;default:'running';index" json:"status"`
	Filename     string     `gorm:"type:varchar(255)" json:"filename"`
	ObjectKey    string     `gorm:"type:varchar(500)" json:"object_key"`
	SizeBytes    int64      `json:"size_bytes"`
	DeletedCount int        `json:"deleted_count"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

// Duration is zero while the run is in progress.
func (b *BackupRecord) Duration() time.Duration {
	if b.FinishedAt == nil {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}
