package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Unlimited is the sentinel stored in max_* columns for tiers without a cap.
const Unlimited = 999999

type Plan struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	Slug                 string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"slug" validate:"required,max=50,lowercase"`
	Description          string    `gorm:"type:text" json:"description"`
	PriceMonthly         int64     `gorm:"not null;default:0" json:"price_monthly" validate:"gte=0"`
	PriceYearly          int64     `gorm:"not null;default:0" json:"price_yearly" validate:"gte=0"`
	MaxUsers             int       `gorm:"not null;default:1" json:"max_users" validate:"gte=1"`
	MaxProducts          int       `gorm:"not null;default:500" json:"max_products" validate:"gte=1"`
	MaxStorageMB         int       `gorm:"column:max_storage;not null;default:1024" json:"max_storage" validate:"gte=0"`
	Features             []string  `gorm:"type:json;serializer:json" json:"features"`
	IsActive             bool      `gorm:"default:true;index" json:"is_active"`
	StripeProductID      string    `gorm:"type:varchar(255)" json:"stripe_product_id,omitempty"`
	StripePriceIDMonthly string    `gorm:"type:varchar(255)" json:"stripe_price_id_monthly,omitempty"`
	StripePriceIDYearly  string    `gorm:"type:varchar(255)" json:"stripe_price_id_yearly,omitempty"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Plan) Validate() error {
	return validator.New().Struct(p)
}

func (p *Plan) UnlimitedUsers() bool {
	return p.MaxUsers >= Unlimited
}

func (p *Plan) UnlimitedProducts() bool {
	return p.MaxProducts >= Unlimited
}

// PriceIDFor returns the Stripe price for a billing period ("monthly" or "yearly").
func (p *Plan) PriceIDFor(period string) string {
	if period == BillingPeriodYearly {
		return p.StripePriceIDYearly
	}
	return p.StripePriceIDMonthly
}

const (
	BillingPeriodMonthly = "monthly"
	BillingPeriodYearly  = "yearly"
)
