package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	TenantStatusActive    = "active"
	TenantStatusTrial     = "trial"
	TenantStatusSuspended = "suspended"
	TenantStatusCancelled = "cancelled"
)

// Tenant is a customer organization. All business rows point to one.
type Tenant struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Name                 string     `gorm:"type:varchar(255);not null" json:"name" validate:"required,min=2,max=255"`
	Subdomain            string     `gorm:"type:varchar(63);not null;uniqueIndex" json:"subdomain" validate:"required,min=3,max=63,lowercase,hostname_rfc1123"`
	CustomDomain         *string    `gorm:"type:varchar(255);default:null" json:"custom_domain,omitempty"`
	CNPJ                 string     `gorm:"column:cnpj;type:varchar(18)" json:"cnpj"`
	PlanID               uint       `gorm:"not null;default:1;index" json:"plan_id"`
	Plan                 *Plan      `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status               string     `gorm:"type:varchar(20);not null;default:'trial';index" json:"status" validate:"oneof=active trial suspended cancelled"`
	TrialEndsAt          *time.Time `gorm:"default:null" json:"trial_ends_at,omitempty"`
	StripeCustomerID     string     `gorm:"type:varchar(255);index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `gorm:"type:varchar(255);index" json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Tenant) Validate() error {
	return validator.New().Struct(t)
}

// IsUsable reports whether the tenant may still write business data.
// A trial past its end date is not usable.
func (t *Tenant) IsUsable(now time.Time) bool {
	switch t.Status {
	case TenantStatusActive:
		return true
	case TenantStatusTrial:
		return t.TrialEndsAt == nil || now.Before(*t.TrialEndsAt)
	default:
		return false
	}
}

// NormalizeSubdomain lowercases and trims a subdomain candidate.
func NormalizeSubdomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func IsValidTenantStatus(status string) bool {
	switch status {
	case TenantStatusActive, TenantStatusTrial, TenantStatusSuspended, TenantStatusCancelled:
		return true
	}
	return false
}
