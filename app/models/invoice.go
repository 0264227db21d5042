package models

import "time"

const (
	InvoiceStatusPendente  = "pendente"
	InvoiceStatusEmitida   = "emitida"
	InvoiceStatusCancelada = "cancelada"
)

// Invoice is an issued fiscal document (NF-e/NFC-e) linked to a sale.
type Invoice struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TenantID    uint       `gorm:"not null;default:1;index" json:"tenant_id"`
	SaleID      *uint      `gorm:"index" json:"sale_id,omitempty"`
	Number      string     `gorm:"type:varchar(20);not null" json:"number"`
	Series      string     `gorm:"type:varchar(5);default:'1'" json:"series"`
	AccessKey   string     `gorm:"type:varchar(44);index" json:"access_key"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pendente'" json:"status"`
	TotalAmount int64      `gorm:"not null;default:0" json:"total_amount"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	XML         string     `gorm:"column:xml;type:longtext" json:"-"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	CommissionStatusPending  = "pending"
	CommissionStatusApproved = "approved"
	CommissionStatusPaid     = "paid"
)

// Commission is a seller's share of a sale. RateBasisPoints 250 = 2.5%.
type Commission struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TenantID        uint       `gorm:"not null;default:1;index" json:"tenant_id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	SaleID          uint       `gorm:"not null;index" json:"sale_id"`
	Amount          int64      `gorm:"not null" json:"amount"`
	RateBasisPoints int        `gorm:"not null" json:"rate_basis_points"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// NewCommission computes the commission for a completed sale.
func NewCommission(sale *Sale, rateBasisPoints int) *Commission {
	return &Commission{
		TenantID:        sale.TenantID,
		UserID:          sale.SellerID,
		SaleID:          sale.ID,
		Amount:          sale.FinalAmount * int64(rateBasisPoints) / 10000,
		RateBasisPoints: rateBasisPoints,
		Status:          CommissionStatusPending,
	}
}
