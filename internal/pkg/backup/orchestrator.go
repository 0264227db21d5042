package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
	"github.com/cellsync/cellsync/internal/pkg/s3backup"
)

type DatabaseDumper interface {
	Dump(ctx context.Context) (*DumpResult, error)
}

type Store interface {
	ObjectKey(filename string) string
	UploadFile(ctx context.Context, localFilePath, objectKey string) (*s3backup.UploadResult, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
	DownloadFile(ctx context.Context, objectKey, localFilePath string) error
	ListBackups(ctx context.Context) ([]s3backup.Object, error)
	CleanupOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type Mailer interface {
	Send(to, subject, body string) error
}

type Options struct {
	RetentionDays int
	NotifyEmail   string
}

// Orchestrator runs dump, upload, retention cleanup and notification, and
// keeps a BackupRecord of every run.
type Orchestrator struct {
	dumper  DatabaseDumper
	store   Store
	mailer  Mailer
	records repository.BackupRecordRepository
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
}

func NewOrchestrator(d DatabaseDumper, s Store, m Mailer, records repository.BackupRecordRepository, mt *metrics.Metrics, opts Options) *Orchestrator {
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	return &Orchestrator{dumper: d, store: s, mailer: m, records: records, metrics: mt, opts: opts, now: time.Now}
}

// Execute always records and notifies, and always removes the temp dump.
// The returned record reflects the final status even when err != nil.
func (o *Orchestrator) Execute(ctx context.Context, trigger string) (*models.BackupRecord, error) {
	rec := &models.BackupRecord{
		TenantID:  models.MasterTenantID,
		Trigger:   trigger,
		Status:    models.BackupStatusRunning,
		StartedAt: o.now(),
	}
	if err := o.records.Create(rec); err != nil {
		log.Warnf("[Backup] failed to create backup record: %v", err)
	}

	runErr := o.run(ctx, rec)

	finished := o.now()
	rec.FinishedAt = &finished
	outcome := "success"
	if runErr != nil {
		rec.Status = models.BackupStatusFailed
		rec.ErrorMessage = runErr.Error()
		outcome = "failure"
		log.Errorf("[Backup] backup failed: %v", runErr)
	} else {
		rec.Status = models.BackupStatusCompleted
		log.Infof("[Backup] backup completed: %s", rec.ObjectKey)
	}
	o.metrics.ObserveBackup(outcome, rec.Duration().Seconds())

	if err := o.records.Update(rec); err != nil {
		log.Warnf("[Backup] failed to update backup record: %v", err)
	}
	o.notify(rec)
	return rec, runErr
}

func (o *Orchestrator) run(ctx context.Context, rec *models.BackupRecord) error {
	dump, err := o.dumper.Dump(ctx)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	defer func() {
		if err := os.Remove(dump.Path); err != nil && !os.IsNotExist(err) {
			log.Warnf("[Backup] failed to remove temp file %s: %v", dump.Path, err)
		}
	}()
	rec.Filename = dump.Filename
	rec.SizeBytes = dump.Size

	key := o.store.ObjectKey(dump.Filename)
	if _, err := o.store.UploadFile(ctx, dump.Path, key); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	// Retention only runs once the new object is confirmed.
	ok, err := o.store.ObjectExists(ctx, key)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !ok {
		return fmt.Errorf("verify: %s missing after upload", key)
	}
	rec.ObjectKey = key

	cutoff := o.now().AddDate(0, 0, -o.opts.RetentionDays)
	deleted, err := o.store.CleanupOlderThan(ctx, cutoff)
	rec.DeletedCount = len(deleted)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	return nil
}

func (o *Orchestrator) notify(rec *models.BackupRecord) {
	if o.mailer == nil || o.opts.NotifyEmail == "" {
		return
	}
	subject, body := renderNotification(rec)
	if err := o.mailer.Send(o.opts.NotifyEmail, subject, body); err != nil {
		log.Warnf("[Backup] notification failed: %v", err)
	}
}

func renderNotification(rec *models.BackupRecord) (string, string) {
	when := rec.StartedAt.Format("02/01/2006 15:04:05")
	if rec.Status == models.BackupStatusCompleted {
		return "[CellSync] Backup concluído com sucesso",
			fmt.Sprintf("<h2>Backup concluído</h2><p>Data: %s</p><p>Arquivo: %s</p><p>Tamanho: %.2f MB</p><p>Duração: %s</p><p>Backups antigos removidos: %d</p>",
				when, rec.ObjectKey, float64(rec.SizeBytes)/1024/1024, rec.Duration().Round(time.Second), rec.DeletedCount)
	}
	return "[CellSync] Falha no backup do banco de dados",
		fmt.Sprintf("<h2>Falha no backup</h2><p>Data: %s</p><p>Erro: %s</p>", when, rec.ErrorMessage)
}

// List returns the stored backups, newest first.
func (o *Orchestrator) List(ctx context.Context) ([]s3backup.Object, error) {
	return o.store.ListBackups(ctx)
}

// Download fetches a stored backup to dest, e.g. for a restore.
func (o *Orchestrator) Download(ctx context.Context, objectKey, dest string) error {
	return o.store.DownloadFile(ctx, objectKey, dest)
}

// History returns the most recent runs.
func (o *Orchestrator) History(limit int) ([]models.BackupRecord, error) {
	return o.records.ListRecent(limit)
}
