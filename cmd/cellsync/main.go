package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/cellsync/cellsync/app/controllers"
	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/auth"
	"github.com/cellsync/cellsync/internal/pkg/backup"
	"github.com/cellsync/cellsync/internal/pkg/billing"
	"github.com/cellsync/cellsync/internal/pkg/cache"
	"github.com/cellsync/cellsync/internal/pkg/cnpj"
	"github.com/cellsync/cellsync/internal/pkg/database"
	"github.com/cellsync/cellsync/internal/pkg/env"
	"github.com/cellsync/cellsync/internal/pkg/importer"
	"github.com/cellsync/cellsync/internal/pkg/jobqueue"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
	"github.com/cellsync/cellsync/internal/pkg/plans"
	"github.com/cellsync/cellsync/internal/pkg/router"
	"github.com/cellsync/cellsync/internal/pkg/sales"
	"github.com/cellsync/cellsync/internal/pkg/serviceorders"
	"github.com/cellsync/cellsync/internal/pkg/session"
	"github.com/cellsync/cellsync/internal/pkg/statistics"
	"github.com/cellsync/cellsync/internal/pkg/tenancy"
)

func main() {
	app, jobs := NewApplication()

	go func() {
		err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
		if err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("[Server] Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("[Server] Shutdown: %v", err)
	}
	jobs.Stop()
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	rdb := cache.GetClient()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()
	m := metrics.Default()
	sessions := session.SetupSessions()

	planSvc := plans.NewService(repos.Plan)
	if seeded, err := planSvc.Seed(); err != nil {
		log.Errorf("[Plans] Seed failed: %v", err)
	} else if len(seeded) > 0 {
		log.Infof("[Plans] Seeded %v", seeded)
	}

	settings, err := repos.Setting.Get()
	if err != nil {
		log.Warnf("[Settings] Using defaults: %v", err)
		settings = models.DefaultAppSettings()
	}

	tenancySvc := tenancy.NewService(repos, tenancy.GormTx(db)).WithTrialDays(settings.GetTrialDays())
	if _, err := tenancySvc.SeedMasterTenant(context.Background()); err != nil {
		log.Errorf("[Tenancy] Master tenant seed failed: %v", err)
	}

	stats := statistics.NewService(db, rdb)
	importerSvc := importer.NewService(repos, m).WithStats(stats)
	jobs := jobqueue.GetManager()
	jobs.GetQueue().SetWorkers(settings.GetJobQueueWorkerCount())
	jobs.GetQueue().RegisterProcessor(jobqueue.JobTypeProductImport,
		jobqueue.NewProductImportProcessor(importerSvc, repos.AuditLog, repos.Notification))

	procs := &controllers.Procedures{
		Sessions:    sessions,
		Auth:        auth.NewService(repos.User, repos.AuditLog, auth.NewLimiter(rdb, 0, 0), m),
		Users:       repos.User,
		Tenancy:     tenancySvc,
		Plans:       planSvc,
		CNPJ:        cnpj.NewClient(cnpj.Config{Timeout: 10 * time.Second}, rdb, m),
		Dashboard:   stats,
		Importer:    importerSvc,
		Jobs:        jobs,
		VersionFile: env.GetEnv("VERSION_FILE", ".version"),

		Sales:         sales.NewService(repos, tenancy.GormTx(db), stats),
		ServiceOrders: serviceorders.NewService(repos),
		Notifications: repos.Notification,
	}

	if orchestrator := setupBackups(repos, settings, m); orchestrator != nil {
		procs.Backups = orchestrator
		jobs.GetQueue().RegisterProcessor(jobqueue.JobTypeDatabaseBackup, jobqueue.NewBackupProcessor(orchestrator))
	}

	stripeCfg := billing.LoadConfig()
	if client, err := billing.NewStripeClient(stripeCfg); err == nil {
		procs.Checkout = billing.NewCheckoutService(client, repos.Plan, stripeCfg.PublicDomain)
	} else {
		log.Warnf("[Billing] Checkout disabled: %v", err)
	}
	webhook := billing.NewServiceFromDB(db, stripeCfg.WebhookSecret, m)

	if err := jobs.Start(); err != nil {
		log.Errorf("[JobQueue] Failed to start: %v", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // spreadsheets travel base64 encoded
	})
	app.Use(recover.New(), logger.New())

	limiterMax, _ := strconv.Atoi(env.GetEnv("API_RATE_LIMIT", strconv.Itoa(router.DefaultLimiterMax)))
	router.InstallRouter(app, router.Deps{
		Procedures: procs,
		Webhook:    webhook,
		Admin:      controllers.NewAdminController(jobs.GetQueue(), webhook),
		Sessions:   sessions,
		Users:      repos.User,
		Tenants:    repos.Tenant,
		Metrics:    m,
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("cache: %w", err)
			}
			return nil
		},
		LimiterStorage: router.NewLimiterStorage(rdb),
		LimiterMax:     limiterMax,
		ExposeErrors:   env.IsDev(),
	})

	return app, jobs
}

// setupBackups returns nil when backups are disabled or misconfigured. The
// scheduled backup is only registered when this returns an orchestrator.
func setupBackups(repos *repository.Repositories, settings *models.AppSettings, m *metrics.Metrics) *backup.Orchestrator {
	orchestrator, err := backup.NewFromEnv(context.Background(), repos.Backup, settings, m)
	if errors.Is(err, backup.ErrDisabled) {
		log.Infof("[Backup] Disabled: %v", err)
		return nil
	}
	if err != nil {
		log.Errorf("[Backup] Not available: %v", err)
		return nil
	}
	return orchestrator
}
