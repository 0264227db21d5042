package controllers

import (
	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

// runBackup queues the backup when workers are available and runs it
// inline otherwise. Without a backup service nothing is queued.
func (p *Procedures) runBackup(c *trpc.Call) (any, error) {
	if p.Backups == nil {
		return nil, notConfigured("Backup")
	}
	if p.Jobs != nil {
		job, err := p.Jobs.EnqueueBackup(models.BackupTriggerManual, c.User.UserID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"queued": true, "jobId": job.ID}, nil
	}
	rec, err := p.Backups.Execute(c.Context(), models.BackupTriggerManual)
	if err != nil {
		return nil, trpc.Wrap(trpc.CodeInternalServerError, "Falha no backup: "+err.Error(), err)
	}
	return map[string]any{"queued": false, "backup": rec}, nil
}

func (p *Procedures) listBackups(c *trpc.Call) (any, error) {
	if p.Backups == nil {
		return nil, notConfigured("Backup")
	}
	objects, err := p.Backups.List(c.Context())
	if err != nil {
		return nil, err
	}
	history, err := p.Backups.History(20)
	if err != nil {
		return nil, err
	}
	return map[string]any{"objects": objects, "history": history}, nil
}
