package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const DefaultMinStock = 10

const (
	StockMovementEntrada       = "entrada"
	StockMovementSaida         = "saida"
	StockMovementAjuste        = "ajuste"
	StockMovementTransferencia = "transferencia"
	StockMovementDevolucao     = "devolucao"
)

// Product prices are in cents.
type Product struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"not null;default:1;index:ux_products_tenant_sku,unique,priority:1;index" json:"tenant_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	SKU          *string   `gorm:"column:sku;type:varchar(100);index:ux_products_tenant_sku,unique,priority:2" json:"sku,omitempty"`
	Barcode      string    `gorm:"type:varchar(100);index" json:"barcode"`
	Category     string    `gorm:"type:varchar(100)" json:"category"`
	Brand        string    `gorm:"type:varchar(100)" json:"brand"`
	Model        string    `gorm:"type:varchar(100)" json:"model"`
	CostPrice    int64     `gorm:"not null;default:0" json:"cost_price" validate:"gte=0"`
	SalePrice    int64     `gorm:"not null;default:0" json:"sale_price" validate:"gte=0"`
	MinStock     int       `gorm:"not null;default:10" json:"min_stock" validate:"gte=0"`
	CurrentStock int       `gorm:"not null;default:0" json:"current_stock"`
	RequiresIMEI bool      `gorm:"column:requires_imei;default:false" json:"requires_imei"`
	Active       bool      `gorm:"default:true" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) Validate() error {
	return validator.New().Struct(p)
}

func (p *Product) IsLowStock() bool {
	return p.CurrentStock <= p.MinStock
}

// StockItem is a serialized unit (one IMEI) of a product.
type StockItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"not null;default:1;index" json:"tenant_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	IMEI      string    `gorm:"column:imei;type:varchar(20);index" json:"imei"`
	Status    string    `gorm:"type:varchar(20);default:'disponivel'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type StockMovement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"not null;default:1;index" json:"tenant_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	StockItemID *uint     `json:"stock_item_id,omitempty"`
	Type        string    `gorm:"type:varchar(20);not null" json:"type" validate:"oneof=entrada saida ajuste transferencia devolucao"`
	Quantity    int       `gorm:"not null" json:"quantity" validate:"ne=0"`
	Reason      string    `gorm:"type:text" json:"reason"`
	UserID      uint      `gorm:"index" json:"user_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Delta is the signed stock change applied by the movement.
func (m *StockMovement) Delta() int {
	switch m.Type {
	case StockMovementSaida:
		if m.Quantity > 0 {
			return -m.Quantity
		}
	case StockMovementEntrada, StockMovementDevolucao:
		if m.Quantity < 0 {
			return -m.Quantity
		}
	}
	return m.Quantity
}
