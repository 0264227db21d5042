package controllers

import (
	"context"
	"time"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/auth"
	"github.com/cellsync/cellsync/internal/pkg/billing"
	"github.com/cellsync/cellsync/internal/pkg/cnpj"
	"github.com/cellsync/cellsync/internal/pkg/importer"
	"github.com/cellsync/cellsync/internal/pkg/jobqueue"
	"github.com/cellsync/cellsync/internal/pkg/plans"
	"github.com/cellsync/cellsync/internal/pkg/s3backup"
	"github.com/cellsync/cellsync/internal/pkg/sales"
	"github.com/cellsync/cellsync/internal/pkg/serviceorders"
	"github.com/cellsync/cellsync/internal/pkg/session"
	"github.com/cellsync/cellsync/internal/pkg/statistics"
	"github.com/cellsync/cellsync/internal/pkg/tenancy"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
	"github.com/cellsync/cellsync/internal/pkg/version"
)

var timeNow = time.Now

type CNPJLookup interface {
	Lookup(ctx context.Context, raw string) (*cnpj.Data, error)
}

type DashboardSource interface {
	Get(ctx context.Context, tenantID uint) (*statistics.Dashboard, error)
	SalesByDay(ctx context.Context, tenantID uint, days int) ([]models.DailyStats, error)
}

type BackupService interface {
	Execute(ctx context.Context, trigger string) (*models.BackupRecord, error)
	List(ctx context.Context) ([]s3backup.Object, error)
	History(limit int) ([]models.BackupRecord, error)
}

type JobEnqueuer interface {
	EnqueueBackup(trigger string, requestedBy uint) (*jobqueue.Job, error)
	EnqueueProductImport(p jobqueue.ProductImportJobPayload) (*jobqueue.Job, error)
}

type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, user *models.User, slug, period string) (*billing.CheckoutResult, error)
}

// Procedures holds what the tRPC handlers need. Optional services left nil
// make their procedures answer PRECONDITION_FAILED.
type Procedures struct {
	Sessions  *session.Manager
	Auth      *auth.Service
	Users     repository.UserRepository
	Tenancy   *tenancy.Service
	Plans     *plans.Service
	CNPJ      CNPJLookup
	Dashboard DashboardSource
	Importer  *importer.Service
	Jobs      JobEnqueuer
	Backups   BackupService
	Checkout  CheckoutCreator

	Sales         *sales.Service
	ServiceOrders *serviceorders.Service
	Notifications repository.NotificationRepository

	VersionFile string
}

// Register installs every procedure on r.
func (p *Procedures) Register(r *trpc.Router) {
	r.Query("version.info", p.versionInfo)

	r.Mutation("auth.login", p.login)
	r.Mutation("auth.logout", p.logout)
	r.Query("auth.me", p.me)
	r.Mutation("auth.changePassword", p.changePassword, trpc.Authed)

	r.Query("plans.list", p.listPlans)

	r.Query("cnpj.lookup", p.lookupCNPJ, trpc.Authed)
	r.Query("cnpj.validate", p.validateCNPJ)

	r.Mutation("tenant.register", p.registerTenant)
	r.Mutation("tenant.switch", p.switchTenant, trpc.Roles(models.ROLE_MASTER_ADMIN))
	r.Mutation("tenant.clearSwitch", p.clearSwitch, trpc.Roles(models.ROLE_MASTER_ADMIN))
	r.Query("tenant.list", p.listTenants, trpc.Roles(models.ROLE_MASTER_ADMIN))

	r.Mutation("users.create", p.createUser, trpc.Roles(models.ROLE_ADMIN, models.ROLE_MASTER_ADMIN))

	r.Query("dashboard.stats", p.dashboardStats, trpc.Authed)
	r.Query("dashboard.salesByDay", p.dashboardSalesByDay, trpc.Authed)

	r.Mutation("sales.create", p.createSale,
		trpc.Roles(models.ROLE_ADMIN, models.ROLE_GERENTE, models.ROLE_VENDEDOR, models.ROLE_MASTER_ADMIN))
	r.Query("commissions.mine", p.myCommissions, trpc.Authed)

	r.Mutation("serviceOrders.create", p.createServiceOrder,
		trpc.Roles(models.ROLE_ADMIN, models.ROLE_GERENTE, models.ROLE_TECNICO, models.ROLE_MASTER_ADMIN))
	r.Mutation("serviceOrders.updateStatus", p.updateServiceOrderStatus,
		trpc.Roles(models.ROLE_ADMIN, models.ROLE_GERENTE, models.ROLE_TECNICO, models.ROLE_MASTER_ADMIN))

	r.Query("notifications.list", p.listNotifications, trpc.Authed)
	r.Mutation("notifications.markRead", p.markNotificationRead, trpc.Authed)

	r.Mutation("import.products", p.importProducts,
		trpc.Roles(models.ROLE_ADMIN, models.ROLE_GERENTE, models.ROLE_MASTER_ADMIN))

	r.Mutation("backup.run", p.runBackup, trpc.Roles(models.ROLE_MASTER_ADMIN))
	r.Query("backup.list", p.listBackups, trpc.Roles(models.ROLE_MASTER_ADMIN))

	r.Mutation("stripe.createCheckout", p.createCheckout, trpc.Authed)
}

func notConfigured(what string) *trpc.Error {
	return trpc.NewError(trpc.CodePreconditionFailed, what+" não configurado")
}

func (p *Procedures) versionInfo(c *trpc.Call) (any, error) {
	path := p.VersionFile
	if path == "" {
		path = version.DefaultFile
	}
	return version.Read(path, timeNow()), nil
}
