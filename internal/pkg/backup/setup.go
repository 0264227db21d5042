package backup

import (
	"context"
	"errors"
	"strconv"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/database"
	"github.com/cellsync/cellsync/internal/pkg/env"
	"github.com/cellsync/cellsync/internal/pkg/mail"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
	"github.com/cellsync/cellsync/internal/pkg/s3backup"
)

var ErrDisabled = errors.New("backup is disabled (backup_enabled setting or S3_BACKUP_ENABLED)")

// NewFromEnv assembles the orchestrator from S3_*, SMTP_*, BACKUP_* and the
// database settings. The backup_enabled and backup_retention_days system
// settings take precedence over the environment when settings is non-nil.
// It returns ErrDisabled when backups are switched off.
func NewFromEnv(ctx context.Context, records repository.BackupRecordRepository, settings *models.AppSettings, m *metrics.Metrics) (*Orchestrator, error) {
	if settings != nil && !settings.IsBackupEnabled() {
		return nil, ErrDisabled
	}
	cfg, err := s3backup.LoadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.IsEnabled() {
		return nil, ErrDisabled
	}
	store, err := s3backup.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dsn, err := database.DSNFromEnv()
	if err != nil {
		return nil, err
	}
	conn, err := ConnInfoFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	var mailer Mailer
	if mcfg := mail.LoadConfig(); mcfg.IsConfigured() {
		mailer = mail.NewSMTPMailer(mcfg)
	}
	retention, _ := strconv.Atoi(env.GetEnv("BACKUP_RETENTION_DAYS", "30"))
	if settings != nil && settings.GetBackupRetentionDays() > 0 {
		retention = settings.GetBackupRetentionDays()
	}
	return NewOrchestrator(
		NewDumper(env.GetEnv("MYSQLDUMP_PATH", "mysqldump"), conn),
		store, mailer, records, m,
		Options{RetentionDays: retention, NotifyEmail: env.GetEnv("BACKUP_NOTIFY_EMAIL", "")},
	), nil
}
