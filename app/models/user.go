package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_ADMIN        = "admin"
	ROLE_MASTER_ADMIN = "master_admin"
	ROLE_VENDEDOR     = "vendedor"
	ROLE_TECNICO      = "tecnico"
	ROLE_GERENTE      = "gerente"
)

// MasterTenantID is the reserved tenant used for internal administration.
const MasterTenantID uint = 1

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TenantID     uint           `gorm:"not null;default:1;index" json:"tenant_id"`
	Name         string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=2,max=150"`
	Email        string         `gorm:"uniqueIndex;type:varchar(320)" json:"email" validate:"required,email,max=320"`
	Password     string         `gorm:"type:varchar(255)" json:"-" validate:"required"`
	Role         string         `gorm:"type:varchar(32);default:'vendedor'" json:"role" validate:"oneof=admin master_admin vendedor tecnico gerente"`
	Active       bool           `gorm:"default:true" json:"active"`
	LastSignedIn *time.Time     `gorm:"default:null" json:"last_signed_in"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a validated user with a hashed password. It does not persist.
func CreateUser(tenantID uint, name, email, password, role string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if tenantID == 0 {
		tenantID = MasterTenantID
	}

	u := &User{
		TenantID: tenantID,
		Name:     strings.TrimSpace(name),
		Email:    NormalizeEmail(email),
		Password: pw,
		Role:     role,
		Active:   true,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// NormalizeEmail lowercases and trims an address before lookups and inserts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

func (u *User) IsMasterAdmin() bool {
	return u.Role == ROLE_MASTER_ADMIN
}

// IsAdmin is true for tenant admins and the master admin.
func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN || u.Role == ROLE_MASTER_ADMIN
}

// EffectiveTenantID maps legacy rows without a tenant to the master tenant.
func (u *User) EffectiveTenantID() uint {
	if u.TenantID == 0 {
		return MasterTenantID
	}
	return u.TenantID
}
