package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
)

var (
	ErrWebhookNotConfigured = errors.New("STRIPE_WEBHOOK_SECRET is not configured")
	ErrMalformedEvent       = errors.New("malformed webhook event")
)

// Outcome is how a delivered webhook event ended.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Service verifies Stripe webhooks, records them once and applies the
// resulting tenant status changes.
type Service struct {
	repo      Repository
	repos     *repository.Repositories
	secret    string
	tolerance time.Duration
	metrics   *metrics.Metrics
}

// NewService creates a billing service from injected repositories.
func NewService(repo Repository, repos *repository.Repositories, webhookSecret string, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		repos:     repos,
		secret:    webhookSecret,
		tolerance: DefaultSignatureTolerance,
		metrics:   m,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, webhookSecret string, m *metrics.Metrics) *Service {
	return NewService(NewRepository(db), repository.NewRepositories(db), webhookSecret, m)
}

// HandleWebhook verifies the signature of a raw delivery and processes it.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error) {
	if s.secret == "" {
		return OutcomeFailed, ErrWebhookNotConfigured
	}
	if err := VerifyStripeSignature(payload, signatureHeader, s.secret, s.tolerance); err != nil {
		s.metrics.ObserveWebhook("unknown", "invalid_signature")
		return OutcomeFailed, err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil || event.Type == "" {
		s.metrics.ObserveWebhook("unknown", "malformed")
		return OutcomeFailed, ErrMalformedEvent
	}
	log.Infof("[Billing] Stripe event received: %s (%s)", event.Type, event.ID)

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		s.metrics.ObserveWebhook(event.Type, string(OutcomeFailed))
		return OutcomeFailed, fmt.Errorf("failed to record webhook event: %w", err)
	}
	// A redelivery is reprocessed only when the previous attempt failed.
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		log.Infof("[Billing] Event %s already processed, skipping", stored.EventID)
		s.metrics.ObserveWebhook(event.Type, string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}

	tenantID, handled, procErr := s.HandleEvent(ctx, &event)
	if err := s.MarkWebhookProcessed(ctx, stored.ID, tenantID, procErr); err != nil {
		log.Errorf("[Billing] Failed to mark event %s processed: %v", stored.EventID, err)
	}

	outcome := OutcomeProcessed
	switch {
	case procErr != nil:
		outcome = OutcomeFailed
		log.Errorf("[Billing] Error processing %s: %v", event.Type, procErr)
	case !handled:
		outcome = OutcomeIgnored
	}
	s.metrics.ObserveWebhook(event.Type, string(outcome))
	return outcome, procErr
}

// HandleEvent applies one event to tenant state. It reports the affected
// tenant and whether the event type is one that changes state.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (*uint, bool, error) {
	_ = ctx
	switch event.Type {
	case EventCheckoutCompleted:
		var session CheckoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		id, err := s.handleCheckoutCompleted(&session)
		return id, true, err

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub Subscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		id, err := s.handleSubscriptionUpdated(&sub)
		return id, true, err

	case EventSubscriptionDeleted:
		var sub Subscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		id, err := s.setStatusBySubscription(event.Type, sub.ID, models.TenantStatusCancelled)
		return id, true, err

	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		var inv Invoice
		if err := json.Unmarshal(event.Data.Object, &inv); err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if inv.Subscription == "" {
			return nil, true, nil
		}
		status := models.TenantStatusActive
		if event.Type == EventInvoicePaymentFailed {
			status = models.TenantStatusSuspended
		}
		id, err := s.setStatusBySubscription(event.Type, string(inv.Subscription), status)
		return id, true, err

	default:
		log.Infof("[Billing] Unhandled Stripe event: %s", event.Type)
		return nil, false, nil
	}
}

func (s *Service) handleCheckoutCompleted(session *CheckoutSession) (*uint, error) {
	userID := parseID(session.Metadata["user_id"])
	if userID == 0 {
		userID = parseID(session.ClientReferenceID)
	}
	if userID == 0 {
		log.Warnf("[Billing] Checkout %s has no user_id metadata", session.ID)
		return nil, nil
	}

	user, err := s.repos.User.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] Checkout %s: user %d not found", session.ID, userID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	slug := strings.TrimSpace(session.Metadata["plan_slug"])
	if slug == "" {
		slug = "basico"
	}
	plan, err := s.repos.Plan.GetBySlug(slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] Checkout %s: plan %s not found", session.ID, slug)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", slug, err)
	}

	tenantID := user.EffectiveTenantID()
	status := models.TenantStatusActive
	update := repository.TenantBillingUpdate{Status: &status, PlanID: &plan.ID}
	if c := string(session.Customer); c != "" {
		update.StripeCustomerID = &c
	}
	if sub := string(session.Subscription); sub != "" {
		update.StripeSubscriptionID = &sub
	}
	if err := s.repos.Tenant.UpdateBilling(tenantID, update); err != nil {
		return &tenantID, fmt.Errorf("failed to activate tenant %d: %w", tenantID, err)
	}
	s.audit(tenantID, EventCheckoutCompleted, map[string]any{"status": status, "plan": plan.Slug})
	log.Infof("[Billing] Tenant %d activated on plan %s", tenantID, plan.Name)
	return &tenantID, nil
}

func (s *Service) handleSubscriptionUpdated(sub *Subscription) (*uint, error) {
	tenantID, err := s.tenantForSubscription(sub.ID, sub.Metadata)
	if err != nil {
		return nil, err
	}
	if tenantID == 0 {
		log.Warnf("[Billing] No tenant for subscription %s", sub.ID)
		return nil, nil
	}

	status := tenantStatusForSubscription(sub.Status)
	subID := sub.ID
	update := repository.TenantBillingUpdate{Status: &status, StripeSubscriptionID: &subID}
	if c := string(sub.Customer); c != "" {
		update.StripeCustomerID = &c
	}
	if err := s.repos.Tenant.UpdateBilling(tenantID, update); err != nil {
		return &tenantID, fmt.Errorf("failed to update tenant %d: %w", tenantID, err)
	}
	s.audit(tenantID, EventSubscriptionUpdated, map[string]any{"status": status, "subscription_status": sub.Status})
	log.Infof("[Billing] Tenant %d updated to status %s", tenantID, status)
	return &tenantID, nil
}

func (s *Service) setStatusBySubscription(eventType, subscriptionID, status string) (*uint, error) {
	tenant, err := s.repos.Tenant.FindByStripeSubscriptionID(subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] No tenant for subscription %s", subscriptionID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tenant for subscription %s: %w", subscriptionID, err)
	}
	if err := s.repos.Tenant.UpdateStatus(tenant.ID, status); err != nil {
		return &tenant.ID, fmt.Errorf("failed to update tenant %d: %w", tenant.ID, err)
	}
	s.audit(tenant.ID, eventType, map[string]any{"status": status})
	log.Infof("[Billing] Tenant %d set to %s (%s)", tenant.ID, status, eventType)
	return &tenant.ID, nil
}

// tenantForSubscription finds the tenant by stored subscription id, then by
// the tenant_id or user_id metadata written at checkout. Zero means unknown.
func (s *Service) tenantForSubscription(subscriptionID string, md map[string]string) (uint, error) {
	tenant, err := s.repos.Tenant.FindByStripeSubscriptionID(subscriptionID)
	if err == nil {
		return tenant.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to find tenant for subscription %s: %w", subscriptionID, err)
	}

	if id := parseID(md["tenant_id"]); id != 0 {
		if _, err := s.repos.Tenant.GetByID(id); err == nil {
			return id, nil
		}
	}
	if uid := parseID(md["user_id"]); uid != 0 {
		if user, err := s.repos.User.GetByID(uid); err == nil {
			return user.EffectiveTenantID(), nil
		}
	}
	return 0, nil
}

func (s *Service) audit(tenantID uint, action string, changes map[string]any) {
	if s.repos.AuditLog == nil {
		return
	}
	entry := models.NewAuditLog(tenantID, nil, "billing."+action, "tenant", strconv.FormatUint(uint64(tenantID), 10), changes)
	if err := s.repos.AuditLog.Record(entry); err != nil {
		log.Warnf("[Billing] Failed to write audit entry for tenant %d: %v", tenantID, err)
	}
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:       provider,
		EventID:        eventID,
		EventType:      strings.TrimSpace(in.EventType),
		Payload:        in.PayloadJSON,
		SignatureValid: in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, tenantID *uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, tenantID, errMsg)
}

// RecentEvents lists stored webhook deliveries, newest first.
func (s *Service) RecentEvents(limit int) ([]models.WebhookEvent, error) {
	return s.repo.ListWebhookEvents(limit)
}
