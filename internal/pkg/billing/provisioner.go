package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
)

const (
	Currency         = "brl"
	DefaultTrialDays = 7
)

var (
	ErrPlanNotFound        = errors.New("Plano não encontrado")
	ErrPriceNotConfigured  = errors.New("Price ID do Stripe não configurado para este plano")
	ErrCheckoutWithoutUser = errors.New("checkout requires a user")
)

// ProvisionResult reports the Stripe objects linked to one plan.
type ProvisionResult struct {
	Slug           string `json:"slug"`
	ProductID      string `json:"product_id"`
	MonthlyPriceID string `json:"monthly_price_id"`
	YearlyPriceID  string `json:"yearly_price_id"`
	Skipped        bool   `json:"skipped"`
}

// Provisioner creates the Stripe product and prices for local plans.
type Provisioner struct {
	api   StripeAPI
	plans repository.PlanRepository
}

func NewProvisioner(api StripeAPI, plans repository.PlanRepository) *Provisioner {
	return &Provisioner{api: api, plans: plans}
}

// Provision creates a product plus monthly and yearly prices for the plan and
// stores their ids. Plans that already carry both price ids are left alone
// unless force is set.
func (p *Provisioner) Provision(ctx context.Context, slug string, force bool) (*ProvisionResult, error) {
	plan, err := p.plans.GetBySlug(slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, slug)
	}
	if err != nil {
		return nil, err
	}

	res := &ProvisionResult{
		Slug:           plan.Slug,
		ProductID:      plan.StripeProductID,
		MonthlyPriceID: plan.StripePriceIDMonthly,
		YearlyPriceID:  plan.StripePriceIDYearly,
	}
	if !force && plan.StripePriceIDMonthly != "" && plan.StripePriceIDYearly != "" {
		res.Skipped = true
		return res, nil
	}

	product, err := p.api.CreateProduct(ctx, ProductParams{
		Name:        "CellSync - Plano " + plan.Name,
		Description: plan.Description,
		Metadata: map[string]string{
			"slug":         plan.Slug,
			"max_users":    strconv.Itoa(plan.MaxUsers),
			"max_products": strconv.Itoa(plan.MaxProducts),
			"max_storage":  strconv.Itoa(plan.MaxStorageMB),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product for %s: %w", plan.Slug, err)
	}
	log.Infof("[Billing] Product %s created for plan %s", product.ID, plan.Slug)

	prices := map[string]int64{
		models.BillingPeriodMonthly: plan.PriceMonthly,
		models.BillingPeriodYearly:  plan.PriceYearly,
	}
	ids := map[string]string{}
	for _, period := range []string{models.BillingPeriodMonthly, models.BillingPeriodYearly} {
		price, err := p.api.CreatePrice(ctx, PriceParams{
			ProductID:  product.ID,
			UnitAmount: prices[period],
			Currency:   Currency,
			Interval:   stripeInterval(period),
			Metadata: map[string]string{
				"plan_slug":      plan.Slug,
				"billing_period": period,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s price for %s: %w", period, plan.Slug, err)
		}
		ids[period] = price.ID
	}

	if err := p.plans.UpdateStripePrices(plan.Slug, product.ID, ids[models.BillingPeriodMonthly], ids[models.BillingPeriodYearly]); err != nil {
		return nil, fmt.Errorf("failed to store stripe prices for %s: %w", plan.Slug, err)
	}
	res.ProductID = product.ID
	res.MonthlyPriceID = ids[models.BillingPeriodMonthly]
	res.YearlyPriceID = ids[models.BillingPeriodYearly]
	return res, nil
}

// ProvisionAll provisions every active plan, stopping at the first error.
func (p *Provisioner) ProvisionAll(ctx context.Context, force bool) ([]ProvisionResult, error) {
	plans, err := p.plans.ListActive()
	if err != nil {
		return nil, err
	}
	out := make([]ProvisionResult, 0, len(plans))
	for _, plan := range plans {
		res, err := p.Provision(ctx, plan.Slug, force)
		if err != nil {
			return out, err
		}
		out = append(out, *res)
	}
	return out, nil
}

// CheckoutResult is returned to the client to redirect into Stripe.
type CheckoutResult struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

// CheckoutService opens subscription checkouts for signed in users.
type CheckoutService struct {
	api          StripeAPI
	plans        repository.PlanRepository
	publicDomain string
	trialDays    int
}

func NewCheckoutService(api StripeAPI, plans repository.PlanRepository, publicDomain string) *CheckoutService {
	return &CheckoutService{
		api:          api,
		plans:        plans,
		publicDomain: strings.TrimRight(publicDomain, "/"),
		trialDays:    DefaultTrialDays,
	}
}

// CreateCheckout opens a subscription checkout for the plan and period.
func (c *CheckoutService) CreateCheckout(ctx context.Context, user *models.User, slug, period string) (*CheckoutResult, error) {
	if user == nil {
		return nil, ErrCheckoutWithoutUser
	}
	plan, err := c.plans.GetBySlug(slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	period = normalizePeriod(period)
	priceID := plan.PriceIDFor(period)
	if priceID == "" {
		return nil, ErrPriceNotConfigured
	}

	userID := strconv.FormatUint(uint64(user.ID), 10)
	tenantID := strconv.FormatUint(uint64(user.EffectiveTenantID()), 10)
	session, err := c.api.CreateCheckoutSession(ctx, CheckoutParams{
		PriceID:           priceID,
		CustomerEmail:     user.Email,
		ClientReferenceID: userID,
		SuccessURL:        c.publicDomain + "/planos/sucesso",
		CancelURL:         c.publicDomain + "/planos",
		TrialDays:         c.trialDays,
		Metadata: map[string]string{
			"plan_slug":      plan.Slug,
			"billing_period": period,
			"user_id":        userID,
			"tenant_id":      tenantID,
			"customer_name":  user.Name,
		},
		SubscriptionMetadata: map[string]string{
			"plan_slug": plan.Slug,
			"user_id":   userID,
			"tenant_id": tenantID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutResult{CheckoutURL: session.URL, SessionID: session.ID}, nil
}
