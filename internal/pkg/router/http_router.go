package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/internal/pkg/middleware"
)

type HttpRouter struct {
	deps Deps
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", h.healthz)
	if h.deps.Metrics != nil {
		app.Get("/metrics", h.deps.Metrics.Handler())
	}

	// Apply user and tenant context globally for everything below
	app.Use(middleware.UserContextMiddleware(h.deps.Sessions, h.deps.Users))
	app.Use(middleware.TenantContextMiddleware(h.deps.Tenants))
}

func (h HttpRouter) healthz(c *fiber.Ctx) error {
	if h.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.deps.Health(ctx); err != nil {
			log.Warnf("[Health] not ready: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "message": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}
