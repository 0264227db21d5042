package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/jobqueue"
)

type QueueInspector interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
}

type WebhookEventLog interface {
	RecentEvents(limit int) ([]models.WebhookEvent, error)
}

// AdminController serves the master admin monitoring endpoints. The routes
// are mounted behind RequireAuth and RequireRole(master_admin).
type AdminController struct {
	queue    QueueInspector
	webhooks WebhookEventLog
}

func NewAdminController(queue QueueInspector, webhooks WebhookEventLog) *AdminController {
	return &AdminController{queue: queue, webhooks: webhooks}
}

func (a *AdminController) HandleJobStats(c *fiber.Ctx) error {
	if a.queue == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "fila de jobs não configurada"})
	}
	stats, err := a.queue.GetJobStats(c.UserContext())
	if err != nil {
		log.Errorf("[Admin] job stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "falha ao ler estatísticas da fila"})
	}
	pending, err := a.queue.GetQueueSize(c.UserContext())
	if err != nil {
		log.Errorf("[Admin] queue size: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "falha ao ler tamanho da fila"})
	}
	return c.JSON(fiber.Map{"stats": stats, "pending": pending})
}

func (a *AdminController) HandleWebhookEvents(c *fiber.Ctx) error {
	if a.webhooks == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "Stripe não configurado"})
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	events, err := a.webhooks.RecentEvents(limit)
	if err != nil {
		log.Errorf("[Admin] webhook events: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "falha ao listar eventos"})
	}
	return c.JSON(fiber.Map{"events": events})
}
