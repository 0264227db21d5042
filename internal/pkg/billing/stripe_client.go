package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/cellsync/cellsync/internal/pkg/env"
)

const DefaultStripeAPIBaseURL = "https://api.stripe.com"

var ErrStripeNotConfigured = errors.New("STRIPE_SECRET_KEY is not configured")

// Config holds the Stripe settings read from the environment.
type Config struct {
	SecretKey     string
	WebhookSecret string
	APIBaseURL    string
	PublicDomain  string
	Timeout       time.Duration
}

// LoadConfig loads Stripe configuration from environment variables.
func LoadConfig() Config {
	return Config{
		SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		APIBaseURL:    env.GetEnv("STRIPE_API_BASE_URL", DefaultStripeAPIBaseURL),
		PublicDomain:  env.GetEnv("PUBLIC_DOMAIN", "http://localhost:3000"),
		Timeout:       20 * time.Second,
	}
}

// APIError is the error object Stripe returns on non-2xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Param      string `json:"param"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %d %s (%s): %s", e.StatusCode, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

type apiErrorEnvelope struct {
	Error APIError `json:"error"`
}

// StripeAPI is the subset of the Stripe REST API the billing flows call.
type StripeAPI interface {
	CreateProduct(ctx context.Context, p ProductParams) (*Product, error)
	CreatePrice(ctx context.Context, p PriceParams) (*Price, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
}

// StripeClient talks form-encoded REST to Stripe.
type StripeClient struct {
	http *resty.Client
}

func NewStripeClient(cfg Config) (*StripeClient, error) {
	if cfg.SecretKey == "" {
		return nil, ErrStripeNotConfigured
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultStripeAPIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	c := resty.New().
		SetBaseURL(cfg.APIBaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &StripeClient{http: c}, nil
}

func (c *StripeClient) CreateProduct(ctx context.Context, p ProductParams) (*Product, error) {
	form := url.Values{}
	form.Set("name", p.Name)
	if p.Description != "" {
		form.Set("description", p.Description)
	}
	setMetadata(form, "metadata", p.Metadata)

	var out Product
	if err := c.post(ctx, "/v1/products", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StripeClient) CreatePrice(ctx context.Context, p PriceParams) (*Price, error) {
	form := url.Values{}
	form.Set("product", p.ProductID)
	form.Set("unit_amount", strconv.FormatInt(p.UnitAmount, 10))
	form.Set("currency", p.Currency)
	form.Set("recurring[interval]", p.Interval)
	setMetadata(form, "metadata", p.Metadata)

	var out Price
	if err := c.post(ctx, "/v1/prices", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("allow_promotion_codes", "true")
	if p.CustomerEmail != "" {
		form.Set("customer_email", p.CustomerEmail)
	}
	if p.ClientReferenceID != "" {
		form.Set("client_reference_id", p.ClientReferenceID)
	}
	if p.TrialDays > 0 {
		form.Set("subscription_data[trial_period_days]", strconv.Itoa(p.TrialDays))
	}
	setMetadata(form, "metadata", p.Metadata)
	setMetadata(form, "subscription_data[metadata]", p.SubscriptionMetadata)

	var out CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends one Stripe write. The idempotency key is fixed per call so
// resty retries cannot create duplicates.
func (c *StripeClient) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	var apiErr apiErrorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetFormDataFromValues(form).
		SetResult(out).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("stripe request %s failed: %w", path, err)
	}
	if resp.IsError() {
		e := apiErr.Error
		e.StatusCode = resp.StatusCode()
		if e.Message == "" {
			e.Message = resp.Status()
		}
		return &e
	}
	return nil
}

func setMetadata(form url.Values, prefix string, md map[string]string) {
	for k, v := range md {
		form.Set(prefix+"["+k+"]", v)
	}
}
