package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/internal/pkg/billing"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type checkoutInput struct {
	PlanSlug      string `json:"planSlug" validate:"required,max=50"`
	BillingPeriod string `json:"billingPeriod" validate:"omitempty,oneof=monthly yearly"`
}

func (p *Procedures) createCheckout(c *trpc.Call) (any, error) {
	if p.Checkout == nil {
		return nil, notConfigured("Stripe")
	}
	var in checkoutInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	user, err := p.Users.GetByID(c.User.UserID)
	if err != nil {
		return nil, trpc.Wrap(trpc.CodeUnauthorized, "Faça login para continuar", err)
	}
	res, err := p.Checkout.CreateCheckout(c.Context(), user, in.PlanSlug, in.BillingPeriod)
	switch {
	case errors.Is(err, billing.ErrPlanNotFound):
		return nil, trpc.NotFound(billing.ErrPlanNotFound.Error())
	case errors.Is(err, billing.ErrPriceNotConfigured):
		return nil, trpc.NewError(trpc.CodePreconditionFailed, billing.ErrPriceNotConfigured.Error())
	case err != nil:
		return nil, err
	}
	return res, nil
}

// WebhookProcessor is satisfied by billing.Service.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) (billing.Outcome, error)
}

// HandleStripeWebhook verifies and applies a Stripe event. Stripe retries
// anything that is not 2xx, so only processing failures answer 500.
func HandleStripeWebhook(svc WebhookProcessor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sig := c.Get("Stripe-Signature")
		if sig == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing Stripe-Signature header"})
		}
		payload := append([]byte(nil), c.Body()...)

		outcome, err := svc.HandleWebhook(c.UserContext(), payload, sig)
		switch {
		case errors.Is(err, billing.ErrWebhookNotConfigured):
			log.Error("[Billing] Webhook received but STRIPE_WEBHOOK_SECRET is not set")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "not_configured", "message": "Webhook not configured"})
		case errors.Is(err, billing.ErrInvalidSignature):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature", "message": "Webhook signature verification failed"})
		case errors.Is(err, billing.ErrMalformedEvent):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed event"})
		case err != nil:
			log.Errorf("[Billing] Webhook processing failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Webhook processing failed"})
		}
		return c.JSON(fiber.Map{"received": true, "outcome": outcome})
	}
}
