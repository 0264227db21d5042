package jobqueue

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/importer"
)

// BackupRunner is satisfied by backup.Orchestrator.
type BackupRunner interface {
	Execute(ctx context.Context, trigger string) (*models.BackupRecord, error)
}

// NewBackupProcessor runs the backup pipeline for database_backup jobs.
func NewBackupProcessor(runner BackupRunner) Processor {
	return func(ctx context.Context, job *Job) error {
		payload, err := DatabaseBackupJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid backup payload: %w", err)
		}
		trigger := payload.Trigger
		if trigger == "" {
			trigger = models.BackupTriggerSchedule
		}
		rec, err := runner.Execute(ctx, trigger)
		if err != nil {
			return err
		}
		log.Infof("[JobQueue] Backup %s stored as %s", rec.Filename, rec.ObjectKey)
		return nil
	}
}

// NewProductImportProcessor imports queued spreadsheets, records the outcome
// in the tenant's audit trail and notifies the requesting user. notes may be
// nil.
func NewProductImportProcessor(svc *importer.Service, audit repository.AuditLogRepository, notes repository.NotificationRepository) Processor {
	return func(ctx context.Context, job *Job) error {
		payload, err := ProductImportJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid import payload: %w", err)
		}
		if payload.TenantID == 0 {
			return fmt.Errorf("import job %s has no tenant", job.ID)
		}
		content, err := base64.StdEncoding.DecodeString(payload.Content)
		if err != nil {
			return fmt.Errorf("invalid import content: %w", err)
		}
		head := content
		if len(head) > 512 {
			head = head[:512]
		}
		format := importer.DetectFormat(payload.FileName, head)
		res, err := svc.ImportProducts(ctx, payload.TenantID, bytes.NewReader(content), format)
		if err != nil {
			return err
		}

		var userID *uint
		if payload.UserID != 0 {
			uid := payload.UserID
			userID = &uid
		}
		entry := models.NewAuditLog(payload.TenantID, userID, "import.products", "product", job.ID, map[string]any{
			"file":    payload.FileName,
			"created": res.Created,
			"skipped": res.Skipped,
			"errors":  res.ErrorCount,
		})
		entry.IPAddress = payload.RequestedIP
		if err := audit.Record(entry); err != nil {
			log.Warnf("[JobQueue] Failed to audit import job %s: %v", job.ID, err)
		}
		if notes != nil && userID != nil {
			msg := fmt.Sprintf("%s: %d produtos importados, %d ignorados, %d com erro.",
				payload.FileName, res.Created, res.Skipped, res.ErrorCount)
			if err := notes.Create(payload.TenantID, userID, models.NotificationSystem, "Importação concluída", msg); err != nil {
				log.Warnf("[JobQueue] Failed to notify import job %s: %v", job.ID, err)
			}
		}
		log.Infof("[JobQueue] Import job %s for tenant %d: %d created", job.ID, payload.TenantID, res.Created)
		return nil
	}
}
