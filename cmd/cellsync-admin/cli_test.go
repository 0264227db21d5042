package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository/memory"
	"github.com/cellsync/cellsync/internal/pkg/backup"
	"github.com/cellsync/cellsync/internal/pkg/billing"
	"github.com/cellsync/cellsync/internal/pkg/plans"
	"github.com/cellsync/cellsync/internal/pkg/s3backup"
)

// newMemoryRuntime installs an in-memory runtime with the plan catalog seeded.
func newMemoryRuntime(t *testing.T) *runtime {
	t.Helper()
	store := memory.NewStore()
	rt := &runtime{repos: store.Repositories(), tx: store.Tx}
	_, err := plans.NewService(rt.repos.Plan).Seed()
	require.NoError(t, err)

	current = rt
	logger = zap.NewNop()
	t.Cleanup(func() {
		current = nil
		usersLimit = 100
		masterEmail, masterName, masterPassword = "", "", ""
		stripeSlug, stripeForce = "", false
		importTenant, importPreview = 0, false
	})
	return rt
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTenantsSeedAndList(t *testing.T) {
	newMemoryRuntime(t)

	out, err := execute(t, "tenants", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "criado: loja-centro-sp")
	assert.Contains(t, out, "Tenants criados: 5, ignorados: 0")

	out, err = execute(t, "tenants", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "já existe: loja-iguatemi")
	assert.Contains(t, out, "Tenants criados: 0, ignorados: 5")

	out, err = execute(t, "tenants", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CellSync Master")
	assert.Contains(t, out, "assistencia-premium")
	assert.Contains(t, out, "Total: 6 tenants")
}

func TestTenantsCheckDuplicate(t *testing.T) {
	newMemoryRuntime(t)

	out, err := execute(t, "tenants", "check-duplicate", "loja-centro-sp")
	require.NoError(t, err)
	assert.Contains(t, out, "Nenhum tenant")

	_, err = execute(t, "tenants", "seed")
	require.NoError(t, err)

	out, err = execute(t, "tenants", "check-duplicate", "loja-centro-sp")
	require.NoError(t, err)
	assert.Contains(t, out, "em uso por um tenant")
	assert.Contains(t, out, "Loja Centro")
}

func TestTenantsCreateMaster(t *testing.T) {
	newMemoryRuntime(t)

	out, err := execute(t, "tenants", "create-master")
	require.NoError(t, err)
	assert.Contains(t, out, "Tenant master criado (id 1)")

	out, err = execute(t, "tenants", "create-master")
	require.NoError(t, err)
	assert.Contains(t, out, "já existe")
}

func TestUsersCreateMasterResetAndList(t *testing.T) {
	rt := newMemoryRuntime(t)

	_, err := execute(t, "users", "create-master", "--email", "root@cellsync.com.br")
	require.Error(t, err)

	out, err := execute(t, "users", "create-master", "--email", "Root@CellSync.com.br", "--name", "Root", "--password", "segredo123")
	require.NoError(t, err)
	assert.Contains(t, out, "criado")

	user, err := rt.repos.User.GetByEmail("root@cellsync.com.br")
	require.NoError(t, err)
	assert.Equal(t, models.ROLE_MASTER_ADMIN, user.Role)
	assert.Equal(t, models.MasterTenantID, user.TenantID)
	assert.True(t, user.CheckPassword("segredo123"))

	out, err = execute(t, "users", "reset-password", "root@cellsync.com.br", "novasenha1")
	require.NoError(t, err)
	assert.Contains(t, out, "Senha atualizada")
	user, err = rt.repos.User.GetByEmail("root@cellsync.com.br")
	require.NoError(t, err)
	assert.True(t, user.CheckPassword("novasenha1"))

	_, err = execute(t, "users", "reset-password", "ninguem@cellsync.com.br", "novasenha1")
	assert.Error(t, err)

	out, err = execute(t, "admins", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "root@cellsync.com.br")
	assert.Contains(t, out, "master_admin")

	out, err = execute(t, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 1 usuários")
}

func TestPlansCommands(t *testing.T) {
	newMemoryRuntime(t)

	out, err := execute(t, "plans", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "basico")
	assert.Contains(t, out, "empresarial")

	out, err = execute(t, "plans", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "plano profissional gravado")

	out, err = execute(t, "plans", "fix-prices")
	require.NoError(t, err)
	assert.Contains(t, out, "basico: R$")
}

type fakeStripe struct {
	products int
	prices   int
}

func (f *fakeStripe) CreateProduct(ctx context.Context, p billing.ProductParams) (*billing.Product, error) {
	f.products++
	return &billing.Product{ID: "prod_" + p.Metadata["slug"]}, nil
}

func (f *fakeStripe) CreatePrice(ctx context.Context, p billing.PriceParams) (*billing.Price, error) {
	f.prices++
	return &billing.Price{ID: "price_" + p.Metadata["plan_slug"] + "_" + p.Interval}, nil
}

func (f *fakeStripe) CreateCheckoutSession(ctx context.Context, p billing.CheckoutParams) (*billing.CheckoutSession, error) {
	return nil, errors.New("not used")
}

func TestStripeSetup(t *testing.T) {
	rt := newMemoryRuntime(t)
	fake := &fakeStripe{}
	orig := newStripeAPI
	newStripeAPI = func() (billing.StripeAPI, error) { return fake, nil }
	t.Cleanup(func() { newStripeAPI = orig })

	out, err := execute(t, "stripe", "setup", "--slug", "profissional")
	require.NoError(t, err)
	assert.Contains(t, out, "price_profissional_month")
	assert.Equal(t, 1, fake.products)
	assert.Equal(t, 2, fake.prices)

	plan, err := rt.repos.Plan.GetBySlug("profissional")
	require.NoError(t, err)
	assert.Equal(t, "price_profissional_year", plan.StripePriceIDYearly)

	stripeSlug = ""
	out, err = execute(t, "stripe", "setup")
	require.NoError(t, err)
	assert.Contains(t, out, "já configurado")
	assert.Equal(t, 3, fake.products)
}

func TestStripeSetupWithoutKey(t *testing.T) {
	newMemoryRuntime(t)
	orig := newStripeAPI
	newStripeAPI = func() (billing.StripeAPI, error) { return nil, billing.ErrStripeNotConfigured }
	t.Cleanup(func() { newStripeAPI = orig })

	_, err := execute(t, "stripe", "setup")
	assert.ErrorIs(t, err, billing.ErrStripeNotConfigured)
}

func TestImportProducts(t *testing.T) {
	rt := newMemoryRuntime(t)
	_, err := execute(t, "tenants", "create-master")
	require.NoError(t, err)

	csv := "nome;sku;preco_custo;preco_venda;estoque_atual\nCapa iPhone;CAPA-1;10,00;29,90;10\n;SEM-NOME;1,00;2,00;1\nPelícula;PEL-1;3,00;9,90;5\n"
	path := filepath.Join(t.TempDir(), "produtos.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	out, err := execute(t, "import", "products", "--tenant", "1", "--preview", path)
	require.NoError(t, err)
	assert.Contains(t, out, "válidas: 2")
	count, err := rt.repos.Product.CountByTenant(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	importPreview = false
	out, err = execute(t, "import", "products", "--tenant", "1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 produtos importados")
	assert.Contains(t, out, "linha 3")

	count, err = rt.repos.Product.CountByTenant(1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	out, err = execute(t, "import", "products", "--tenant", "1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ignorados: 2")
}

func TestImportProductsRequiresTenant(t *testing.T) {
	newMemoryRuntime(t)
	_, err := execute(t, "import", "products", "missing.csv")
	assert.Error(t, err)
}

func TestDBCommandsNeedSQL(t *testing.T) {
	newMemoryRuntime(t)
	for _, args := range [][]string{
		{"db", "tables"},
		{"db", "check-schema"},
		{"db", "audit-isolation"},
		{"db", "apply-journal", t.TempDir()},
		{"db", "fix-tenancy"},
	} {
		t.Run(args[1], func(t *testing.T) {
			_, err := execute(t, args...)
			assert.ErrorIs(t, err, errNeedsSQL)
		})
	}
}

type fakeBackups struct {
	runErr     error
	downloaded []string
}

func (f *fakeBackups) Download(ctx context.Context, objectKey, dest string) error {
	f.downloaded = append(f.downloaded, objectKey+" -> "+dest)
	return nil
}

func (f *fakeBackups) Execute(ctx context.Context, trigger string) (*models.BackupRecord, error) {
	rec := &models.BackupRecord{Trigger: trigger, Status: models.BackupStatusCompleted, ObjectKey: "backups/backup-1.sql", SizeBytes: 2 * 1024 * 1024, DeletedCount: 1}
	if f.runErr != nil {
		rec.Status = models.BackupStatusFailed
		rec.ErrorMessage = f.runErr.Error()
	}
	return rec, f.runErr
}

func (f *fakeBackups) List(ctx context.Context) ([]s3backup.Object, error) {
	return []s3backup.Object{{Key: "backups/backup-1.sql", Size: 1024 * 1024, LastModified: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)}}, nil
}

func (f *fakeBackups) History(limit int) ([]models.BackupRecord, error) {
	return []models.BackupRecord{{Trigger: models.BackupTriggerSchedule, Status: models.BackupStatusCompleted, StartedAt: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)}}, nil
}

func TestBackupCommands(t *testing.T) {
	newMemoryRuntime(t)
	fake := &fakeBackups{}
	orig := newBackupService
	newBackupService = func(ctx context.Context, rt *runtime) (backupService, error) { return fake, nil }
	t.Cleanup(func() { newBackupService = orig })

	out, err := execute(t, "backup", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "backups/backup-1.sql (2.00 MB), 1 antigos removidos")

	out, err = execute(t, "backup", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "backups/backup-1.sql")
	assert.Contains(t, out, "schedule")

	out, err = execute(t, "backup", "download", "backups/backup-1.sql", "/tmp/restore.sql")
	require.NoError(t, err)
	assert.Contains(t, out, "Backup salvo em /tmp/restore.sql")
	assert.Equal(t, []string{"backups/backup-1.sql -> /tmp/restore.sql"}, fake.downloaded)

	fake.runErr = errors.New("mysqldump: not found")
	_, err = execute(t, "backup", "run")
	assert.ErrorContains(t, err, "mysqldump: not found")
}

func TestBackupServiceRespectsDisabledSetting(t *testing.T) {
	rt := newMemoryRuntime(t)
	require.NoError(t, rt.repos.Setting.SetValue(models.SettingBackupEnabled, "false"))

	_, err := execute(t, "backup", "list")
	assert.ErrorIs(t, err, backup.ErrDisabled)
}

func TestSettingsCommands(t *testing.T) {
	rt := newMemoryRuntime(t)

	out, err := execute(t, "settings", "get", models.SettingTrialDays)
	require.NoError(t, err)
	assert.Equal(t, "14\n", out)

	out, err = execute(t, "settings", "set", models.SettingTrialDays, "30")
	require.NoError(t, err)
	assert.Contains(t, out, "trial_days = 30")
	settings, err := rt.repos.Setting.Get()
	require.NoError(t, err)
	assert.Equal(t, 30, settings.GetTrialDays())

	out, err = execute(t, "settings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "default_commission_bps")
	assert.Contains(t, out, "30")

	_, err = execute(t, "settings", "set", models.SettingTrialDays, "abc")
	assert.ErrorContains(t, err, "expects an integer")
	_, err = execute(t, "settings", "set", "site_title", "x")
	assert.ErrorContains(t, err, "unknown setting")
	_, err = execute(t, "settings", "get", "site_title")
	assert.ErrorContains(t, err, "unknown setting")
}

func TestVersionCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".version")
	require.NoError(t, os.WriteFile(path, []byte("abcdef1234567\n2026-03-01T12:00:00Z\nRelease notes\n"), 0o644))
	t.Setenv("VERSION_FILE", path)
	logger = zap.NewNop()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "abcdef1")
	assert.Contains(t, out, "Release notes")
	assert.Contains(t, out, "01/03/2026")
}
