package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cellsync/cellsync/app/controllers"
	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/middleware"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

const (
	WebhookPath       = "/api/stripe/webhook"
	DefaultLimiterMax = 120
)

type ApiRouter struct {
	deps Deps
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	max := h.deps.LimiterMax
	if max <= 0 {
		max = DefaultLimiterMax
	}
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:          max,
		Expiration:   time.Minute,
		Storage:      h.deps.LimiterStorage,
		KeyGenerator: controllers.GetClientIP,
		// Stripe delivers in bursts and retries on 429
		Next: func(c *fiber.Ctx) bool { return c.Path() == WebhookPath },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too_many_requests", "message": "Muitas requisições, tente novamente em instantes"})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	rpc := trpc.NewRouter()
	rpc.ExposeErrors = h.deps.ExposeErrors
	if h.deps.Procedures != nil {
		h.deps.Procedures.Register(rpc)
	}
	api.Get("/trpc/*", rpc.Handler())
	api.Post("/trpc/*", rpc.Handler())

	if h.deps.Webhook != nil {
		api.Post("/stripe/webhook", controllers.HandleStripeWebhook(h.deps.Webhook))
	}

	if h.deps.Admin != nil {
		admin := api.Group("/admin", middleware.RequireAuth, middleware.RequireRole(models.ROLE_MASTER_ADMIN))
		admin.Get("/jobs/stats", h.deps.Admin.HandleJobStats)
		admin.Get("/webhooks/events", h.deps.Admin.HandleWebhookEvents)
	}
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

// NewLimiterStorage keeps limiter counters in Redis database 1, next to the
// cache on database 0. It panics when Redis is unreachable.
func NewLimiterStorage(client *goredis.Client) fiber.Storage {
	opts := client.Options()
	host, port := "localhost", 6379
	if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: opts.Password,
		Database: 1,
		Reset:    false,
	})
}
