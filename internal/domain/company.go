package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/vnlease/vnlease-api/internal/utils"
)

// Company is one legal entity offering vehicle numbers for lease. Several
// Company rows may share one phone and password hash; that is how a single
// operator controls multiple entities under one login. The password of
// record is the one set at the first registration under that phone.
type Company struct {
	ID             int64      `json:"id"`
	BusinessNumber string     `json:"business_number"`
	CompanyName    string     `json:"company_name"`
	Representative string     `json:"representative"`
	Phone          string     `json:"phone"`
	ContactPhone   *string    `json:"-"` // revealed only through paid disclosure
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	IsVerified     bool       `json:"is_verified"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type RegisterCompanyRequest struct {
	BusinessNumber string `json:"business_number"`
	CompanyName    string `json:"company_name"`
	Representative string `json:"representative"`
	Phone          string `json:"phone"`
	ContactPhone   string `json:"contact_phone,omitempty"`
	Email          string `json:"email"`
	Password       string `json:"password"`
}

type CompanyLoginResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *CompanyInfo  `json:"user"`
	Companies   []CompanyInfo `json:"companies"`
}

type CompanyInfo struct {
	ID             int64  `json:"id"`
	BusinessNumber string `json:"business_number"`
	CompanyName    string `json:"company_name"`
	Representative string `json:"representative"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	IsVerified     bool   `json:"is_verified"`
}

// UpdateContactPhoneRequest changes the number revealed through paid
// disclosure. A null or empty value clears it, falling back to the
// registration phone.
type UpdateContactPhoneRequest struct {
	ContactPhone *string `json:"contact_phone"`
}

func (r *UpdateContactPhoneRequest) Validate() error {
	if r.ContactPhone != nil && *r.ContactPhone != "" && !utils.IsValidPhone(*r.ContactPhone) {
		return ValidationError("invalid contact phone format")
	}
	return nil
}

type SwitchCompanyRequest struct {
	TargetCompanyID int64  `json:"target_company_id"`
	Password        string `json:"password"`
}

// Business registration numbers are issued as DDD-DD-DDDDD.
var businessNumberRe = regexp.MustCompile(`^\d{3}-\d{2}-\d{5}$`)

func IsValidBusinessNumber(n string) bool {
	return businessNumberRe.MatchString(n)
}

func (r *RegisterCompanyRequest) Normalize() {
	r.BusinessNumber = strings.TrimSpace(r.BusinessNumber)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.Representative = strings.TrimSpace(r.Representative)
	r.Phone = strings.TrimSpace(r.Phone)
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	r.Email = utils.NormalizeEmail(r.Email)
}

func (r *RegisterCompanyRequest) Validate() error {
	if r.BusinessNumber == "" {
		return ValidationError("business number is required")
	}
	if !IsValidBusinessNumber(r.BusinessNumber) {
		return ValidationError("business number must match 000-00-00000")
	}
	if r.CompanyName == "" {
		return ValidationError("company name is required")
	}
	if r.Representative == "" {
		return ValidationError("representative is required")
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

func (r *SwitchCompanyRequest) Validate() error {
	if r.TargetCompanyID <= 0 {
		return ValidationError("target company id is required")
	}
	if r.Password == "" {
		return ValidationError("password is required")
	}
	return nil
}

func (c *Company) ToInfo() *CompanyInfo {
	return &CompanyInfo{
		ID:             c.ID,
		BusinessNumber: c.BusinessNumber,
		CompanyName:    c.CompanyName,
		Representative: c.Representative,
		Phone:          c.Phone,
		Email:          c.Email,
		IsVerified:     c.IsVerified,
	}
}

func CompanyInfos(companies []Company) []CompanyInfo {
	infos := make([]CompanyInfo, 0, len(companies))
	for _, c := range companies {
		infos = append(infos, *c.ToInfo())
	}
	return infos
}
