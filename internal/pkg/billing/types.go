package billing

import (
	"bytes"
	"encoding/json"
)

// Stripe event types handled by the webhook.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// Event is the envelope Stripe posts to the webhook endpoint.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ExpandableID decodes a Stripe reference that is either an id string or an
// expanded object carrying "id".
type ExpandableID string

func (e *ExpandableID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = ExpandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = ExpandableID(obj.ID)
	return nil
}

type CheckoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Mode              string            `json:"mode"`
	Customer          ExpandableID      `json:"customer"`
	Subscription      ExpandableID      `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

type Subscription struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Customer ExpandableID      `json:"customer"`
	Metadata map[string]string `json:"metadata"`
}

type Invoice struct {
	ID           string       `json:"id"`
	Customer     ExpandableID `json:"customer"`
	Subscription ExpandableID `json:"subscription"`
}

type Product struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

type Price struct {
	ID         string `json:"id"`
	Product    string `json:"product"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Recurring  *struct {
		Interval string `json:"interval"`
	} `json:"recurring"`
	Metadata map[string]string `json:"metadata"`
}

// ProductParams creates a Stripe product.
type ProductParams struct {
	Name        string
	Description string
	Metadata    map[string]string
}

// PriceParams creates a recurring Stripe price.
type PriceParams struct {
	ProductID  string
	UnitAmount int64
	Currency   string
	Interval   string
	Metadata   map[string]string
}

// CheckoutParams creates a subscription checkout session.
type CheckoutParams struct {
	PriceID              string
	CustomerEmail        string
	ClientReferenceID    string
	SuccessURL           string
	CancelURL            string
	TrialDays            int
	Metadata             map[string]string
	SubscriptionMetadata map[string]string
}
