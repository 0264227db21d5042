// Package serviceorders tracks device repairs through their workflow.
package serviceorders

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
)

var (
	ErrNotFound          = errors.New("ordem de serviço não encontrada")
	ErrCustomerNotFound  = errors.New("cliente não encontrado")
	ErrInvalidTransition = errors.New("transição de status inválida")
)

type CreateInput struct {
	CustomerID    uint   `json:"customerId" validate:"required"`
	TechnicianID  *uint  `json:"technicianId"`
	DeviceType    string `json:"deviceType" validate:"max=100"`
	Brand         string `json:"brand" validate:"max=100"`
	Model         string `json:"model" validate:"max=100"`
	SerialNumber  string `json:"serialNumber" validate:"max=100"`
	IMEI          string `json:"imei" validate:"max=20"`
	Defect        string `json:"defect" validate:"required"`
	Priority      string `json:"priority" validate:"omitempty,oneof=baixa media alta urgente"`
	EstimatedCost int64  `json:"estimatedCost" validate:"gte=0"`
	WarrantyDays  int    `json:"warrantyDays" validate:"gte=0"`
	Notes         string `json:"notes"`
}

type Service struct {
	repos *repository.Repositories
	now   func() time.Time
}

func NewService(repos *repository.Repositories) *Service {
	return &Service{repos: repos, now: time.Now}
}

func (s *Service) Create(tenantID uint, in CreateInput) (*models.ServiceOrder, error) {
	if err := validator.New().Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.repos.Customer.GetByID(tenantID, in.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	order := &models.ServiceOrder{
		TenantID:      tenantID,
		CustomerID:    in.CustomerID,
		TechnicianID:  in.TechnicianID,
		DeviceType:    in.DeviceType,
		Brand:         in.Brand,
		Model:         in.Model,
		SerialNumber:  in.SerialNumber,
		IMEI:          in.IMEI,
		Defect:        in.Defect,
		Status:        models.ServiceOrderAberta,
		Priority:      in.Priority,
		EstimatedCost: in.EstimatedCost,
		WarrantyDays:  in.WarrantyDays,
		Notes:         in.Notes,
	}
	if order.Priority == "" {
		order.Priority = models.PriorityMedia
	}
	if order.WarrantyDays == 0 {
		order.WarrantyDays = models.DefaultWarrantyDays
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.ServiceOrder.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create service order: %w", err)
	}
	return order, nil
}

// UpdateStatus advances the order through its workflow. Orders that become
// ready for pickup or completed notify the whole tenant.
func (s *Service) UpdateStatus(tenantID, id uint, status string) (*models.ServiceOrder, error) {
	order, err := s.repos.ServiceOrder.GetByID(tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := order.TransitionTo(status, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if err := s.repos.ServiceOrder.UpdateStatus(order); err != nil {
		return nil, err
	}

	var title string
	switch status {
	case models.ServiceOrderAguardandoRetirada:
		title = "Aparelho pronto para retirada"
	case models.ServiceOrderConcluida:
		title = "Ordem de serviço concluída"
	}
	if title != "" {
		msg := fmt.Sprintf("OS #%d (%s %s) está %s.", order.ID, order.Brand, order.Model, status)
		if err := s.repos.Notification.Create(tenantID, nil, models.NotificationServiceOrder, title, msg); err != nil {
			log.Warnf("[ServiceOrders] notification for order %d failed: %v", order.ID, err)
		}
	}
	return order, nil
}
