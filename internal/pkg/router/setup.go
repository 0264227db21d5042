package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/cellsync/cellsync/app/controllers"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
	"github.com/cellsync/cellsync/internal/pkg/session"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps are the services the routes are wired to.
type Deps struct {
	Procedures *controllers.Procedures
	Webhook    controllers.WebhookProcessor
	Admin      *controllers.AdminController
	Sessions   *session.Manager
	Users      repository.UserRepository
	Tenants    repository.TenantRepository
	Metrics    *metrics.Metrics
	// Health reports readiness of the backing stores; nil means always ready.
	Health func(ctx context.Context) error

	// LimiterStorage shares rate limits across instances; nil keeps them in memory.
	LimiterStorage fiber.Storage
	LimiterMax     int
	ExposeErrors   bool
}

func InstallRouter(app *fiber.App, deps Deps) {
	// The HTTP router installs the user/tenant context middleware the API
	// procedures read, so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
