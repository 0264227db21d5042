package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
)

func TestSettingGetValueMissingKey(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM `system_settings` WHERE setting_key = \\?").
		WillReturnError(gorm.ErrRecordNotFound)

	val, err := NewSettingRepository(db).GetValue("backup_enabled")
	require.NoError(t, err)
	assert.Equal(t, "", val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingSetValueCreatesMissingKey(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM `system_settings` WHERE setting_key = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "setting_key", "value"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `system_settings`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM `system_settings`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "setting_key", "value"}).AddRow(1, "trial_days", "21"))

	require.NoError(t, NewSettingRepository(db).SetValue("trial_days", "21"))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 21, models.GetAppSettings().GetTrialDays(), "cache reloaded after write")
}

func TestFactoryReturnsSameRepositories(t *testing.T) {
	db, _ := newMockDB(t)
	f := NewFactory(db)

	assert.Same(t, f.GetRepositories(), f.GetRepositories())
	assert.NotNil(t, f.GetTenantRepository())
	assert.NotNil(t, f.GetBackupRecordRepository())
	assert.Equal(t, db, f.DB())
}
