package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
)

// InvalidCredentialsMessage is the only message shown for failed logins.
const InvalidCredentialsMessage = "Email ou senha inválidos"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrWeakPassword       = errors.New("password must have at least 8 characters with letters and digits")
	ErrUserNotFound       = errors.New("user not found")
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Meta is request metadata recorded in the audit trail.
type Meta struct {
	IPAddress string
	UserAgent string
}

type Service struct {
	users   repository.UserRepository
	audit   repository.AuditLogRepository
	limiter *Limiter
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(users repository.UserRepository, audit repository.AuditLogRepository, limiter *Limiter, m *metrics.Metrics) *Service {
	return &Service{users: users, audit: audit, limiter: limiter, metrics: m, now: time.Now}
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(result)
	}
}

// Login checks the credentials. Unknown email, inactive account and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput, meta Meta) (*models.User, error) {
	if err := validator.New().Struct(in); err != nil {
		s.observe("invalid_input")
		return nil, ErrInvalidCredentials
	}
	email := models.NormalizeEmail(in.Email)

	locked, err := s.limiter.Locked(ctx, email)
	if err != nil {
		log.Warnf("[Auth] limiter check failed: %v", err)
	}
	if locked {
		s.observe("locked")
		return nil, ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || !user.Active || !user.CheckPassword(in.Password) {
		s.observe("invalid")
		if nowLocked, err := s.limiter.Fail(ctx, email); err != nil {
			log.Warnf("[Auth] limiter update failed: %v", err)
		} else if nowLocked {
			log.Warnf("[Auth] login locked for %s", email)
		}
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.TouchLastSignedIn(user.ID, now); err != nil {
		log.Warnf("[Auth] failed to update last sign-in for user %d: %v", user.ID, err)
	}
	user.LastSignedIn = &now
	if err := s.limiter.Reset(ctx, email); err != nil {
		log.Warnf("[Auth] limiter reset failed: %v", err)
	}
	s.record(user, "auth.login", meta)
	s.observe("success")
	return user, nil
}

// Logout only writes the audit entry; token revocation lives in session.
func (s *Service) Logout(ctx context.Context, user *models.User, meta Meta) {
	_ = ctx
	if user != nil {
		s.record(user, "auth.logout", meta)
	}
}

func (s *Service) record(user *models.User, action string, meta Meta) {
	if s.audit == nil {
		return
	}
	uid := user.ID
	entry := models.NewAuditLog(user.EffectiveTenantID(), &uid, action, "user", strconv.FormatUint(uint64(user.ID), 10), nil)
	entry.IPAddress = meta.IPAddress
	entry.UserAgent = meta.UserAgent
	if err := s.audit.Record(entry); err != nil {
		log.Warnf("[Auth] failed to write audit entry %s: %v", action, err)
	}
}

// ValidatePasswordStrength requires 8+ characters with letters and digits.
func ValidatePasswordStrength(pw string) error {
	if len([]rune(pw)) < 8 {
		return ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}

// ChangePassword verifies the current password before storing next.
func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	_ = ctx
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.CheckPassword(current) {
		return ErrInvalidCredentials
	}
	if err := ValidatePasswordStrength(next); err != nil {
		return err
	}
	if err := user.SetPassword(next); err != nil {
		return err
	}
	if err := s.users.Update(user); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	s.record(user, "auth.change_password", Meta{})
	return nil
}

// ResetPassword overwrites the password of the account with email.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	_ = ctx
	if len(newPassword) < 6 {
		return fmt.Errorf("password must have at least 6 characters")
	}
	hash, err := models.HashPassword(newPassword)
	if err != nil {
		return err
	}
	n, err := s.users.UpdatePassword(email, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, models.NormalizeEmail(email))
	}
	return nil
}

// EnsureMasterAdmin creates or promotes the master admin account on tenant 1.
// It returns true when a new user was created.
func (s *Service) EnsureMasterAdmin(ctx context.Context, email, name, password string) (bool, error) {
	_ = ctx
	existing, err := s.users.GetByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if existing != nil {
		existing.Role = models.ROLE_MASTER_ADMIN
		existing.TenantID = models.MasterTenantID
		existing.Active = true
		if password != "" {
			if err := existing.SetPassword(password); err != nil {
				return false, err
			}
		}
		if err := s.users.Update(existing); err != nil {
			return false, fmt.Errorf("failed to promote master admin: %w", err)
		}
		return false, nil
	}

	user, err := models.CreateUser(models.MasterTenantID, name, email, password, models.ROLE_MASTER_ADMIN)
	if err != nil {
		return false, err
	}
	if err := s.users.Create(user); err != nil {
		return false, fmt.Errorf("failed to create master admin: %w", err)
	}
	return true, nil
}
