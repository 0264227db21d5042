package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	SaleStatusPendente  = "pendente"
	SaleStatusConcluida = "concluida"
	SaleStatusCancelada = "cancelada"

	SaleTypeRetail    = "retail"
	SaleTypeWholesale = "wholesale"
)

// Sale amounts are in cents. FinalAmount = TotalAmount - DiscountAmount.
type Sale struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	TenantID         uint       `gorm:"not null;default:1;index" json:"tenant_id"`
	CustomerID       *uint      `gorm:"index" json:"customer_id,omitempty"`
	SellerID         uint       `gorm:"not null;index" json:"seller_id"`
	TotalAmount      int64      `gorm:"not null;default:0" json:"total_amount"`
	DiscountAmount   int64      `gorm:"not null;default:0" json:"discount_amount" validate:"gte=0"`
	FinalAmount      int64      `gorm:"not null;default:0" json:"final_amount"`
	PaymentMethod    string     `gorm:"type:varchar(50)" json:"payment_method"`
	Status           string     `gorm:"type:varchar(20);not null;default:'concluida';index" json:"status" validate:"oneof=pendente concluida cancelada"`
	SaleType         string     `gorm:"type:varchar(20);default:'retail'" json:"sale_type" validate:"oneof=retail wholesale"`
	CommissionAmount int64      `gorm:"default:0" json:"commission_amount"`
	SaleDate         time.Time  `gorm:"not null;index" json:"sale_date"`
	Items            []SaleItem `gorm:"foreignKey:SaleID" json:"items,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type SaleItem struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	TenantID   uint  `gorm:"not null;default:1;index" json:"tenant_id"`
	SaleID     uint  `gorm:"not null;index" json:"sale_id"`
	ProductID  uint  `gorm:"not null;index" json:"product_id"`
	Quantity   int   `gorm:"not null" json:"quantity" validate:"gt=0"`
	UnitPrice  int64 `gorm:"not null" json:"unit_price" validate:"gte=0"`
	Discount   int64 `gorm:"default:0" json:"discount" validate:"gte=0"`
	TotalPrice int64 `gorm:"not null" json:"total_price"`
}

func (s *Sale) Validate() error {
	return validator.New().Struct(s)
}

// Recalculate derives item totals and the sale amounts from the items.
// Discounts never drive an amount below zero.
func (s *Sale) Recalculate() {
	var total int64
	for i := range s.Items {
		it := &s.Items[i]
		it.TotalPrice = int64(it.Quantity)*it.UnitPrice - it.Discount
		if it.TotalPrice < 0 {
			it.TotalPrice = 0
		}
		total += it.TotalPrice
	}
	s.TotalAmount = total
	s.FinalAmount = total - s.DiscountAmount
	if s.FinalAmount < 0 {
		s.FinalAmount = 0
	}
}

func (s *Sale) IsCompleted() bool {
	return s.Status == SaleStatusConcluida
}
