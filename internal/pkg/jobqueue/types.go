package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeDatabaseBackup JobType = "database_backup"
	JobTypeProductImport  JobType = "product_import"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// DatabaseBackupJobPayload contains the payload for database backup jobs
type DatabaseBackupJobPayload struct {
	Trigger     string `json:"trigger"`
	RequestedBy uint   `json:"requested_by,omitempty"`
}

// ToMap converts the payload to a map for storage
func (p DatabaseBackupJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"trigger":      p.Trigger,
		"requested_by": p.RequestedBy,
	}
}

func DatabaseBackupJobPayloadFromMap(data map[string]interface{}) (*DatabaseBackupJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload DatabaseBackupJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ProductImportJobPayload carries a spreadsheet to import for one tenant.
// Content is base64 so XLSX files survive the JSON round trip.
type ProductImportJobPayload struct {
	TenantID    uint   `json:"tenant_id"`
	UserID      uint   `json:"user_id"`
	FileName    string `json:"file_name"`
	Content     string `json:"content"`
	RequestedIP string `json:"requested_ip,omitempty"`
}

func (p ProductImportJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":    p.TenantID,
		"user_id":      p.UserID,
		"file_name":    p.FileName,
		"content":      p.Content,
		"requested_ip": p.RequestedIP,
	}
}

func ProductImportJobPayloadFromMap(data map[string]interface{}) (*ProductImportJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload ProductImportJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
