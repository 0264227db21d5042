package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	ServiceOrderAberta              = "aberta"
	ServiceOrderEmDiagnostico       = "em_diagnostico"
	ServiceOrderAguardandoAprovacao = "aguardando_aprovacao"
	ServiceOrderEmReparo            = "em_reparo"
	ServiceOrderConcluida           = "concluida"
	ServiceOrderCancelada           = "cancelada"
	ServiceOrderAguardandoRetirada  = "aguardando_retirada"

	PriorityBaixa   = "baixa"
	PriorityMedia   = "media"
	PriorityAlta    = "alta"
	PriorityUrgente = "urgente"

	DefaultWarrantyDays = 90
)

var serviceOrderTransitions = map[string][]string{
	ServiceOrderAberta:              {ServiceOrderEmDiagnostico, ServiceOrderCancelada},
	ServiceOrderEmDiagnostico:       {ServiceOrderAguardandoAprovacao, ServiceOrderEmReparo, ServiceOrderCancelada},
	ServiceOrderAguardandoAprovacao: {ServiceOrderEmReparo, ServiceOrderCancelada},
	ServiceOrderEmReparo:            {ServiceOrderAguardandoRetirada, ServiceOrderConcluida, ServiceOrderCancelada},
	ServiceOrderAguardandoRetirada:  {ServiceOrderConcluida},
}

type ServiceOrder struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	TenantID            uint       `gorm:"not null;default:1;index" json:"tenant_id"`
	CustomerID          uint       `gorm:"not null;index" json:"customer_id"`
	TechnicianID        *uint      `gorm:"index" json:"technician_id,omitempty"`
	DeviceType          string     `gorm:"type:varchar(100)" json:"device_type"`
	Brand               string     `gorm:"type:varchar(100)" json:"brand"`
	Model               string     `gorm:"type:varchar(100)" json:"model"`
	SerialNumber        string     `gorm:"type:varchar(100)" json:"serial_number"`
	IMEI                string     `gorm:"column:imei;type:varchar(20)" json:"imei"`
	Defect              string     `gorm:"type:text;not null" json:"defect" validate:"required"`
	Diagnosis           string     `gorm:"type:text" json:"diagnosis"`
	Solution            string     `gorm:"type:text" json:"solution"`
	Status              string     `gorm:"type:varchar(30);not null;default:'aberta';index" json:"status" validate:"oneof=aberta em_diagnostico aguardando_aprovacao em_reparo concluida cancelada aguardando_retirada"`
	Priority            string     `gorm:"type:varchar(10);not null;default:'media'" json:"priority" validate:"oneof=baixa media alta urgente"`
	EstimatedCost       int64      `gorm:"default:0" json:"estimated_cost"`
	FinalCost           int64      `gorm:"default:0" json:"final_cost"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	WarrantyDays        int        `gorm:"default:90" json:"warranty_days"`
	Notes               string     `gorm:"type:text" json:"notes"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *ServiceOrder) Validate() error {
	return validator.New().Struct(o)
}

// CanTransition reports whether the order may move to the given status.
func (o *ServiceOrder) CanTransition(to string) bool {
	for _, next := range serviceOrderTransitions[o.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the order forward and stamps CompletedAt on completion.
func (o *ServiceOrder) TransitionTo(to string, now time.Time) error {
	if !o.CanTransition(to) {
		return fmt.Errorf("invalid service order transition %s -> %s", o.Status, to)
	}
	o.Status = to
	if to == ServiceOrderConcluida {
		o.CompletedAt = &now
	}
	return nil
}

// WarrantyExpiresAt is nil until the order is completed.
func (o *ServiceOrder) WarrantyExpiresAt() *time.Time {
	if o.CompletedAt == nil {
		return nil
	}
	days := o.WarrantyDays
	if days <= 0 {
		days = DefaultWarrantyDays
	}
	t := o.CompletedAt.AddDate(0, 0, days)
	return &t
}

// ServiceOrderPart is a product consumed by a repair.
type ServiceOrderPart struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TenantID       uint      `gorm:"not null;default:1;index" json:"tenant_id"`
	ServiceOrderID uint      `gorm:"not null;index" json:"service_order_id"`
	ProductID      uint      `gorm:"not null" json:"product_id"`
	Quantity       int       `gorm:"not null" json:"quantity" validate:"gt=0"`
	UnitPrice      int64     `gorm:"not null" json:"unit_price"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
