// Package sales records point-of-sale transactions and the seller
// commissions they earn.
package sales

import (
	"context"
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
	ErrProductNotFound  = errors.New("produto não encontrado")
	ErrCustomerNotFound = errors.New("cliente não encontrado")
)

// StatsInvalidator drops cached dashboard counters after a write.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, tenantID uint) error
}

type ItemInput struct {
	ProductID uint   `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	UnitPrice *int64 `json:"unitPrice" validate:"omitempty,gte=0"`
	Discount  int64  `json:"discount" validate:"gte=0"`
}

type CreateInput struct {
	CustomerID     *uint       `json:"customerId"`
	Items          []ItemInput `json:"items" validate:"required,min=1,dive"`
	DiscountAmount int64       `json:"discountAmount" validate:"gte=0"`
	PaymentMethod  string      `json:"paymentMethod" validate:"max=50"`
	SaleType       string      `json:"saleType" validate:"omitempty,oneof=retail wholesale"`
}

type Service struct {
	repos *repository.Repositories
	tx    func(fn func(r *repository.Repositories) error) error
	stats StatsInvalidator
	now   func() time.Time
}

func NewService(repos *repository.Repositories, tx func(fn func(r *repository.Repositories) error) error, stats StatsInvalidator) *Service {
	return &Service{repos: repos, tx: tx, stats: stats, now: time.Now}
}

// Create records a completed sale for the seller. Unit prices default to the
// product's sale price, and the commission uses the default_commission_bps
// setting; a zero rate records no commission.
func (s *Service) Create(ctx context.Context, tenantID, sellerID uint, in CreateInput) (*models.Sale, *models.Commission, error) {
	if err := validator.New().Struct(in); err != nil {
		return nil, nil, err
	}
	if in.CustomerID != nil {
		if _, err := s.repos.Customer.GetByID(tenantID, *in.CustomerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, ErrCustomerNotFound
			}
			return nil, nil, err
		}
	}

	saleType := in.SaleType
	if saleType == "" {
		saleType = models.SaleTypeRetail
	}
	sale := &models.Sale{
		TenantID:       tenantID,
		CustomerID:     in.CustomerID,
		SellerID:       sellerID,
		DiscountAmount: in.DiscountAmount,
		PaymentMethod:  in.PaymentMethod,
		Status:         models.SaleStatusConcluida,
		SaleType:       saleType,
		SaleDate:       s.now(),
	}
	for _, it := range in.Items {
		product, err := s.repos.Product.GetByID(tenantID, it.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, fmt.Errorf("%w: %d", ErrProductNotFound, it.ProductID)
			}
			return nil, nil, err
		}
		price := product.SalePrice
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		sale.Items = append(sale.Items, models.SaleItem{
			TenantID:  tenantID,
			ProductID: product.ID,
			Quantity:  it.Quantity,
			UnitPrice: price,
			Discount:  it.Discount,
		})
	}
	sale.Recalculate()
	if err := sale.Validate(); err != nil {
		return nil, nil, err
	}

	rate := 0
	if settings, err := s.repos.Setting.Get(); err == nil {
		rate = settings.GetDefaultCommissionBps()
	} else {
		log.Warnf("[Sales] settings unavailable, no commission recorded: %v", err)
	}

	var commission *models.Commission
	if rate > 0 {
		commission = models.NewCommission(sale, rate)
		sale.CommissionAmount = commission.Amount
	}

	err := s.tx(func(r *repository.Repositories) error {
		if err := r.Sale.Create(sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}
		if commission == nil {
			return nil
		}
		commission.SaleID = sale.ID
		if err := r.Commission.Create(commission); err != nil {
			return fmt.Errorf("failed to create commission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if s.stats != nil {
		if err := s.stats.Invalidate(ctx, tenantID); err != nil {
			log.Warnf("[Sales] dashboard invalidation failed: %v", err)
		}
	}
	return sale, commission, nil
}

// Commissions lists the seller's latest commissions.
func (s *Service) Commissions(tenantID, userID uint, limit int) ([]models.Commission, error) {
	return s.repos.Commission.ListByUser(tenantID, userID, limit)
}
