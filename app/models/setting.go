package models

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// SystemSetting is a key/value row in system_settings.
type SystemSetting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"column:setting_key;type:varchar(100);not null;uniqueIndex" json:"key" validate:"required,max=100"`
	Value       string    `gorm:"type:text" json:"value"`
	Type        string    `gorm:"type:varchar(20);not null;default:'string'" json:"type" validate:"oneof=string boolean integer"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	SettingBackupEnabled        = "backup_enabled"
	SettingBackupRetentionDays  = "backup_retention_days"
	SettingJobQueueWorkerCount  = "job_queue_worker_count"
	SettingDefaultCommissionBps = "default_commission_bps"
	SettingTrialDays            = "trial_days"
)

// AppSettings is the in-memory view of system_settings.
type AppSettings struct {
	BackupEnabled        bool `json:"backup_enabled"`
	BackupRetentionDays  int  `json:"backup_retention_days" validate:"gte=1,lte=365"`
	JobQueueWorkerCount  int  `json:"job_queue_worker_count" validate:"gte=1,lte=50"`
	DefaultCommissionBps int  `json:"default_commission_bps" validate:"gte=0,lte=10000"`
	TrialDays            int  `json:"trial_days" validate:"gte=0,lte=90"`
	mu                   sync.RWMutex
}

var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		BackupEnabled:        true,
		BackupRetentionDays:  30,
		JobQueueWorkerCount:  3,
		DefaultCommissionBps: 200,
		TrialDays:            14,
	}
}

// GetAppSettings returns the loaded settings, or nil before LoadSettings ran.
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// LoadSettings reads system_settings over the defaults and caches the result.
func LoadSettings(db *gorm.DB) error {
	loaded := DefaultAppSettings()

	var rows []SystemSetting
	if err := db.Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	for _, row := range rows {
		loaded.Apply(row.Key, row.Value)
	}

	settingsMu.Lock()
	appSettings = loaded
	settingsMu.Unlock()
	return nil
}

// IsKnownSetting reports whether key is one of the typed settings above.
func IsKnownSetting(key string) bool {
	switch key {
	case SettingBackupEnabled, SettingBackupRetentionDays, SettingJobQueueWorkerCount, SettingDefaultCommissionBps, SettingTrialDays:
		return true
	}
	return false
}

// ValidateSetting checks that value parses for key and stays within the
// allowed range.
func ValidateSetting(key, value string) error {
	if !IsKnownSetting(key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	switch SettingType(key) {
	case "boolean":
		if value != "true" && value != "false" {
			return fmt.Errorf("%s expects true or false", key)
		}
	case "integer":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("%s expects an integer", key)
		}
	}
	s := DefaultAppSettings()
	s.Apply(key, value)
	return s.Validate()
}

// Apply sets one field from its stored string form. Unknown keys and
// unparsable numbers leave the settings unchanged.
func (s *AppSettings) Apply(key, value string) {
	atoi := func(def int) int {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		return def
	}
	switch key {
	case SettingBackupEnabled:
		s.BackupEnabled = value == "true"
	case SettingBackupRetentionDays:
		s.BackupRetentionDays = atoi(s.BackupRetentionDays)
	case SettingJobQueueWorkerCount:
		s.JobQueueWorkerCount = atoi(s.JobQueueWorkerCount)
	case SettingDefaultCommissionBps:
		s.DefaultCommissionBps = atoi(s.DefaultCommissionBps)
	case SettingTrialDays:
		s.TrialDays = atoi(s.TrialDays)
	}
}

// SaveSettings validates and writes every setting, then swaps the cache.
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	values := settings.Values()

	err := db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			var row SystemSetting
			err := tx.Where("setting_key = ?", key).First(&row).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				row = SystemSetting{Key: key, Value: value, Type: SettingType(key)}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to create setting %s: %w", key, err)
				}
			case err != nil:
				return fmt.Errorf("failed to query setting %s: %w", key, err)
			default:
				if err := tx.Model(&row).Update("value", value).Error; err != nil {
					return fmt.Errorf("failed to update setting %s: %w", key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	settingsMu.Lock()
	appSettings = settings
	settingsMu.Unlock()
	return nil
}

// Values renders every setting in its stored string form.
func (s *AppSettings) Values() map[string]string {
	return map[string]string{
		SettingBackupEnabled:        strconv.FormatBool(s.BackupEnabled),
		SettingBackupRetentionDays:  strconv.Itoa(s.BackupRetentionDays),
		SettingJobQueueWorkerCount:  strconv.Itoa(s.JobQueueWorkerCount),
		SettingDefaultCommissionBps: strconv.Itoa(s.DefaultCommissionBps),
		SettingTrialDays:            strconv.Itoa(s.TrialDays),
	}
}

func SettingType(key string) string {
	switch key {
	case SettingBackupEnabled:
		return "boolean"
	case SettingBackupRetentionDays, SettingJobQueueWorkerCount, SettingDefaultCommissionBps, SettingTrialDays:
		return "integer"
	default:
		return "string"
	}
}

func (s *AppSettings) Validate() error {
	return validator.New().Struct(s)
}

func (s *AppSettings) IsBackupEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BackupEnabled
}

func (s *AppSettings) GetBackupRetentionDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BackupRetentionDays
}

func (s *AppSettings) GetJobQueueWorkerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.JobQueueWorkerCount
}

func (s *AppSettings) GetDefaultCommissionBps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DefaultCommissionBps
}

func (s *AppSettings) GetTrialDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TrialDays
}
