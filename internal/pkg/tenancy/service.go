package tenancy

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
	"github.com/cellsync/cellsync/internal/pkg/entitlements"
)

const DefaultTrialDays = 14

var (
	ErrDuplicateSubdomain = errors.New("subdomain already in use")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrNotMasterAdmin     = errors.New("only the master admin may switch tenants")
	ErrUserLimit          = errors.New("plan user limit reached")
)

// TxFunc runs fn inside one database transaction.
type TxFunc func(fn func(r *repository.Repositories) error) error

// GormTx is the production TxFunc.
func GormTx(db *gorm.DB) TxFunc {
	return func(fn func(r *repository.Repositories) error) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return fn(repository.NewRepositories(tx))
		})
	}
}

type Service struct {
	repos     *repository.Repositories
	tx        TxFunc
	trialDays int
	now       func() time.Time
}

func NewService(repos *repository.Repositories, tx TxFunc) *Service {
	return &Service{repos: repos, tx: tx, trialDays: DefaultTrialDays, now: time.Now}
}

// WithTrialDays overrides the trial length (trial_days setting).
func (s *Service) WithTrialDays(days int) *Service {
	if days > 0 {
		s.trialDays = days
	}
	return s
}

type RegisterInput struct {
	CompanyName   string `json:"companyName" validate:"required,min=2,max=255"`
	Subdomain     string `json:"subdomain" validate:"required,min=3,max=63"`
	CNPJ          string `json:"cnpj" validate:"omitempty,max=18"`
	AdminName     string `json:"adminName" validate:"required,min=2,max=150"`
	AdminEmail    string `json:"adminEmail" validate:"required,email"`
	AdminPassword string `json:"adminPassword" validate:"required,min=8"`
}

// Register creates a trial tenant on the basico plan plus its first admin.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Tenant, *models.User, error) {
	_ = ctx
	if err := validator.New().Struct(in); err != nil {
		return nil, nil, err
	}
	subdomain := models.NormalizeSubdomain(in.Subdomain)

	if _, err := s.repos.Tenant.GetBySubdomain(subdomain); err == nil {
		return nil, nil, ErrDuplicateSubdomain
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("failed to check subdomain: %w", err)
	}
	if _, err := s.repos.User.GetByEmail(in.AdminEmail); err == nil {
		return nil, nil, ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}

	plan, err := s.repos.Plan.GetBySlug(string(entitlements.PlanBasico))
	if err != nil {
		return nil, nil, fmt.Errorf("default plan missing: %w", err)
	}

	trialEnds := s.now().AddDate(0, 0, s.trialDays)
	tenant := &models.Tenant{
		Name:        in.CompanyName,
		Subdomain:   subdomain,
		CNPJ:        in.CNPJ,
		PlanID:      plan.ID,
		Status:      models.TenantStatusTrial,
		TrialEndsAt: &trialEnds,
	}
	if err := tenant.Validate(); err != nil {
		return nil, nil, err
	}

	var admin *models.User
	err = s.tx(func(r *repository.Repositories) error {
		if err := r.Tenant.Create(tenant); err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		u, err := models.CreateUser(tenant.ID, in.AdminName, in.AdminEmail, in.AdminPassword, models.ROLE_ADMIN)
		if err != nil {
			return err
		}
		if err := r.User.Create(u); err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		admin = u
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Infof("[Tenancy] Registered tenant %d (%s) with admin %s", tenant.ID, tenant.Subdomain, admin.Email)
	return tenant, admin, nil
}

type AddUserInput struct {
	Name     string `json:"name" validate:"required,min=2,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin gerente vendedor tecnico"`
}

// AddUser creates a staff user on the tenant within the plan's user limit.
func (s *Service) AddUser(ctx context.Context, tenantID uint, in AddUserInput) (*models.User, error) {
	_ = ctx
	if err := validator.New().Struct(in); err != nil {
		return nil, err
	}
	tenant, err := s.repos.Tenant.GetByID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	plan, err := s.repos.Plan.GetByID(tenant.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %d: %w", tenant.PlanID, err)
	}
	current, err := s.repos.User.CountByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	if err := entitlements.EnsureCanAddUser(tenant, plan, current); err != nil {
		if errors.Is(err, entitlements.ErrPlanLimitReached) {
			return nil, fmt.Errorf("%w: %s allows %d", ErrUserLimit, plan.Slug, plan.MaxUsers)
		}
		return nil, err
	}
	if _, err := s.repos.User.GetByEmail(in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	u, err := models.CreateUser(tenantID, in.Name, in.Email, in.Password, in.Role)
	if err != nil {
		return nil, err
	}
	if err := s.repos.User.Create(u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Infof("[Tenancy] User %s (%s) added to tenant %d", u.Email, u.Role, tenantID)
	return u, nil
}

// CheckDuplicate lists every tenant using the subdomain.
func (s *Service) CheckDuplicate(subdomain string) ([]models.Tenant, error) {
	return s.repos.Tenant.ListBySubdomain(subdomain)
}

func (s *Service) List() ([]models.Tenant, error) {
	return s.repos.Tenant.List()
}

// Switch validates an impersonation target for the master admin.
func (s *Service) Switch(role string, tenantID uint) (*models.Tenant, error) {
	if role != models.ROLE_MASTER_ADMIN {
		return nil, ErrNotMasterAdmin
	}
	tenant, err := s.repos.Tenant.GetByID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return tenant, nil
}
