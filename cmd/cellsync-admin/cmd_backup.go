package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/backup"
	"github.com/cellsync/cellsync/internal/pkg/env"
	"github.com/cellsync/cellsync/internal/pkg/s3backup"
	"github.com/cellsync/cellsync/internal/pkg/version"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Database backups to S3",
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Dump the database, upload it and prune old backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupRun,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups and recent runs",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupDownloadCmd = &cobra.Command{
	Use:   "download [object-key] [dest]",
	Short: "Download a stored backup, e.g. before a restore",
	Args:  cobra.ExactArgs(2),
	RunE:  runBackupDownload,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the deployed version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Read(env.GetEnv("VERSION_FILE", ".version"), time.Now())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "commit:   %s\n", info.Commit)
		fmt.Fprintf(out, "data:     %s\n", info.FormattedDate)
		fmt.Fprintf(out, "mensagem: %s\n", info.Message)
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupRunCmd, backupListCmd, backupDownloadCmd)
}

type backupService interface {
	Execute(ctx context.Context, trigger string) (*models.BackupRecord, error)
	List(ctx context.Context) ([]s3backup.Object, error)
	History(limit int) ([]models.BackupRecord, error)
	Download(ctx context.Context, objectKey, dest string) error
}

var newBackupService = func(ctx context.Context, rt *runtime) (backupService, error) {
	settings, err := rt.repos.Setting.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return backup.NewFromEnv(ctx, rt.repos.Backup, settings, rt.metrics)
}

func runBackupRun(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	svc, err := newBackupService(cmd.Context(), rt)
	if err != nil {
		return err
	}
	rec, err := svc.Execute(cmd.Context(), models.BackupTriggerManual)
	if rec != nil {
		logger.Info("backup finished",
			zap.String("status", rec.Status),
			zap.String("object", rec.ObjectKey),
			zap.Int64("bytes", rec.SizeBytes),
			zap.Int("pruned", rec.DeletedCount))
	}
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup enviado: %s (%.2f MB), %d antigos removidos\n",
		rec.ObjectKey, float64(rec.SizeBytes)/1024/1024, rec.DeletedCount)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	svc, err := newBackupService(cmd.Context(), rt)
	if err != nil {
		return err
	}
	objects, err := svc.List(cmd.Context())
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(objects))
	for _, o := range objects {
		rows = append(rows, []string{o.Key, fmt.Sprintf("%.2f MB", float64(o.Size)/1024/1024), o.LastModified.Format("2006-01-02 15:04")})
	}
	out := cmd.OutOrStdout()
	renderTable(out, []string{"OBJETO", "TAMANHO", "MODIFICADO"}, rows)

	history, err := svc.History(10)
	if err != nil {
		return err
	}
	hrows := make([][]string, 0, len(history))
	for _, h := range history {
		hrows = append(hrows, []string{h.StartedAt.Format("2006-01-02 15:04"), h.Trigger, h.Status, orDash(h.ObjectKey), orDash(h.ErrorMessage)})
	}
	renderTable(out, []string{"INÍCIO", "ORIGEM", "STATUS", "OBJETO", "ERRO"}, hrows)
	return nil
}

func runBackupDownload(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	svc, err := newBackupService(cmd.Context(), rt)
	if err != nil {
		return err
	}
	if err := svc.Download(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup salvo em %s\n", args[1])
	return nil
}
