package model

import (
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// RoleCode is the flat role attached to a user account.
type RoleCode string

const (
	RoleAgent    RoleCode = "AGENT"
	RoleRetailer RoleCode = "RETAILER"
	RoleAdmin    RoleCode = "ADMIN"
)

// User represents an authenticated actor: field agent, retailer, or admin.
// Retailer accounts additionally carry the credit snapshot that the credit
// ledger mutates (never written directly by anything else).
type User struct {
	BaseModel
	Phone    string   `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone" validate:"required"`
	Password string   `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	FullName string   `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	Role     RoleCode `gorm:"type:varchar(20);not null;index" json:"role" validate:"required,oneof=AGENT RETAILER ADMIN"`
	IsActive bool     `gorm:"default:true" json:"is_active"`

	// Retailer credit snapshot (zero for agents/admins).
	// Invariant 0 <= used_credit <= credit_limit, also enforced in the
	// credit service under a row lock.
	AmanaScore  int             `gorm:"default:0;check:amana_score >= 0 AND amana_score <= 100" json:"amana_score"`
	CreditLimit decimal.Decimal `gorm:"type:numeric(18,6);default:0" json:"credit_limit"`
	UsedCredit  decimal.Decimal `gorm:"type:numeric(18,6);default:0;check:used_credit >= 0 AND used_credit <= credit_limit" json:"used_credit"`
}

// AvailableCredit is the headroom a reservation may still take.
func (u *User) AvailableCredit() decimal.Decimal {
	return u.CreditLimit.Sub(u.UsedCredit)
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// UserResponse is the JSON shape returned to clients (no password hash).
type UserResponse struct {
	ID       string   `json:"id"`
	Phone    string   `json:"phone"`
	FullName string   `json:"full_name"`
	Role     RoleCode `json:"role"`
	IsActive bool     `json:"is_active"`
}

// RetailerSnapshot is the lookup-service view of a retailer record.
type RetailerSnapshot struct {
	ID          string          `json:"id"`
	FullName    string          `json:"name"`
	Phone       string          `json:"phone"`
	AmanaScore  int             `json:"amana_score"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	UsedCredit  decimal.Decimal `json:"used_credit"`
	Available   decimal.Decimal `json:"available_credit"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Phone:    u.Phone,
		FullName: u.FullName,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

func (u *User) ToRetailerSnapshot() RetailerSnapshot {
	return RetailerSnapshot{
		ID:          u.ID.String(),
		FullName:    u.FullName,
		Phone:       u.Phone,
		AmanaScore:  u.AmanaScore,
		CreditLimit: u.CreditLimit,
		UsedCredit:  u.UsedCredit,
		Available:   u.AvailableCredit(),
	}
}
