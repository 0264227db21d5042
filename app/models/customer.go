package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Customer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TenantID      uint      `gorm:"not null;default:1;index" json:"tenant_id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Email         string    `gorm:"type:varchar(320)" json:"email" validate:"omitempty,email"`
	Phone         string    `gorm:"type:varchar(20)" json:"phone"`
	CPF           string    `gorm:"column:cpf;type:varchar(14)" json:"cpf"`
	CNPJ          string    `gorm:"column:cnpj;type:varchar(18)" json:"cnpj"`
	Address       string    `gorm:"type:text" json:"address"`
	City          string    `gorm:"type:varchar(100)" json:"city"`
	State         string    `gorm:"type:varchar(2)" json:"state" validate:"omitempty,len=2"`
	ZipCode       string    `gorm:"type:varchar(10)" json:"zip_code"`
	Notes         string    `gorm:"type:text" json:"notes"`
	LoyaltyPoints int       `gorm:"default:0" json:"loyalty_points"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) Validate() error {
	return validator.New().Struct(c)
}
