package repository

import (
	"errors"

	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
)

// settingRepository implements the SettingRepository interface
type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository instance
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// Get returns the cached settings, loading them on first use.
func (r *settingRepository) Get() (*models.AppSettings, error) {
	if s := models.GetAppSettings(); s != nil {
		return s, nil
	}
	if err := models.LoadSettings(r.db); err != nil {
		return nil, err
	}
	return models.GetAppSettings(), nil
}

// Save saves the application settings to the database
func (r *settingRepository) Save(settings *models.AppSettings) error {
	return models.SaveSettings(r.db, settings)
}

// GetValue retrieves a specific setting value by key. Missing keys yield "".
func (r *settingRepository) GetValue(key string) (string, error) {
	var setting models.SystemSetting
	err := r.db.Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

// SetValue sets a specific setting value by key and reloads the cached
// settings so running services see the change.
func (r *settingRepository) SetValue(key, value string) error {
	var setting models.SystemSetting
	err := r.db.Where("setting_key = ?", key).First(&setting).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.SystemSetting{
			Key:   key,
			Value: value,
			Type:  models.SettingType(key),
		}
		err = r.db.Create(&setting).Error
	} else if err == nil {
		setting.Value = value
		err = r.db.Save(&setting).Error
	}
	if err != nil {
		return err
	}
	return models.LoadSettings(r.db)
}
