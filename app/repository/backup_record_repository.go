package repository

import (
	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

type backupRecordRepository struct {
	db *gorm.DB
}

func NewBackupRecordRepository(db *gorm.DB) BackupRecordRepository {
	return &backupRecordRepository{db: db}
}

func (r *backupRecordRepository) Create(record *models.BackupRecord) error {
	return r.db.Create(record).Error
}

func (r *backupRecordRepository) Update(record *models.BackupRecord) error {
	return r.db.Save(record).Error
}

func (r *backupRecordRepository) ListRecent(limit int) ([]models.BackupRecord, error) {
	var records []models.BackupRecord
	err := r.db.Order("started_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
