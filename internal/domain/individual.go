package domain

import (
	"strings"
	"time"

	"github.com/vnlease/vnlease-api/internal/utils"
)

type Individual struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsVerified   bool       `json:"is_verified"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type RegisterIndividualRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier       string `json:"identifier"` // phone or email
	Password         string `json:"password"`
	PrincipalType    string `json:"principal_type"` // "individual" or "company"
	DefaultCompanyID *int64 `json:"default_company_id,omitempty"`
}

type IndividualLoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   int64           `json:"expires_in"`
	User        *IndividualInfo `json:"user"`
}

type IndividualInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}

type UpdateProfileRequest struct {
	Name            *string `json:"name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Email           *string `json:"email,omitempty"`
	NewPassword     *string `json:"new_password,omitempty"`
	CurrentPassword string  `json:"current_password,omitempty"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConsume struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// PasswordResetToken is single-use and time-boxed. A new request for the same
// user invalidates all prior unused tokens.
type PasswordResetToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Token     string     `json:"-"`
	CodeHash  string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (r *RegisterIndividualRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = utils.NormalizeEmail(r.Email)
}

func (r *RegisterIndividualRequest) Validate() error {
	if r.Name == "" {
		return ValidationError("name is required")
	}
	if r.Phone == "" {
		return ValidationError("phone is required")
	}
	if !utils.IsValidPhone(r.Phone) {
		return ValidationError("invalid phone format")
	}
	if r.Email == "" {
		return ValidationError("email is required")
	}
	if !utils.IsValidEmail(r.Email) {
		return ValidationError("invalid email format")
	}
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
	if strings.Contains(r.Identifier, "@") {
		r.Identifier = utils.NormalizeEmail(r.Identifier)
	}
}

func (r *LoginRequest) Validate() error {
	if r.Identifier == "" {
		return ValidationError("phone or email is required")
	}
	if r.Password == "" {
		return ValidationError("password is required")
	}
	switch r.PrincipalType {
	case "", "individual", "company":
	default:
		return ValidationError("invalid principal type")
	}
	return nil
}

// IsEmail reports whether the login identifier should be resolved as an
// email address rather than a phone number.
func (r *LoginRequest) IsEmail() bool {
	return strings.Contains(r.Identifier, "@")
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Phone != nil && !utils.IsValidPhone(*r.Phone) {
		return ValidationError("invalid phone format")
	}
	if r.Email != nil && !utils.IsValidEmail(*r.Email) {
		return ValidationError("invalid email format")
	}
	if r.NewPassword != nil {
		if r.CurrentPassword == "" {
			return ValidationError("current password is required to change password")
		}
		if err := ValidatePassword(*r.NewPassword); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePassword enforces the account password policy: at least 8
// characters containing at least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ValidationError("password must be at least 8 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return ValidationError("password must contain at least one letter and one digit")
	}
	return nil
}

func (u *Individual) ToInfo() *IndividualInfo {
	return &IndividualInfo{
		ID:         u.ID,
		Name:       u.Name,
		Phone:      u.Phone,
		Email:      u.Email,
		IsVerified: u.IsVerified,
	}
}
