package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/internal/mailer"
	"github.com/vnlease/vnlease-api/internal/oauth"
	"github.com/vnlease/vnlease-api/internal/repository"
	"github.com/vnlease/vnlease-api/internal/utils"
	"github.com/vnlease/vnlease-api/internal/verify"
	"github.com/vnlease/vnlease-api/pkg/auth"
	"github.com/vnlease/vnlease-api/pkg/config"
	"github.com/vnlease/vnlease-api/pkg/events"
	"github.com/vnlease/vnlease-api/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

type IdentityService interface {
	RegisterIndividual(ctx context.Context, req *domain.RegisterIndividualRequest) (*domain.IndividualLoginResponse, error)
	RegisterCompany(ctx context.Context, req *domain.RegisterCompanyRequest) (*domain.CompanyLoginResponse, error)
	LoginIndividual(ctx context.Context, req *domain.LoginRequest) (*domain.IndividualLoginResponse, error)
	LoginCompany(ctx context.Context, req *domain.LoginRequest) (*domain.CompanyLoginResponse, error)
	SwitchCompany(ctx context.Context, callerCompanyID int64, req *domain.SwitchCompanyRequest) (*domain.CompanyLoginResponse, error)
	GetIndividual(ctx context.Context, id int64) (*domain.Individual, error)
	GetCompany(ctx context.Context, id int64) (*domain.Company, error)
	UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.Individual, error)
	UpdateCompanyContactPhone(ctx context.Context, companyID int64, req *domain.UpdateContactPhoneRequest) (*domain.Company, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	VerifyResetCode(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	OAuthLogin(ctx context.Context, providerName, code string) (*domain.IndividualLoginResponse, error)
}

type identityService struct {
	individualRepo repository.IndividualRepository
	companyRepo    repository.CompanyRepository
	resetRepo      repository.ResetRepository
	verifier       verify.Service
	providers      map[string]oauth.Provider
	mailer         mailer.Service
	eventBus       events.EventBus
	config         *config.Config
}

func NewIdentityService(
	individualRepo repository.IndividualRepository,
	companyRepo repository.CompanyRepository,
	resetRepo repository.ResetRepository,
	verifier verify.Service,
	providers map[string]oauth.Provider,
	mailer mailer.Service,
	eventBus events.EventBus,
	config *config.Config,
) IdentityService {
	return &identityService{
		individualRepo: individualRepo,
		companyRepo:    companyRepo,
		resetRepo:      resetRepo,
		verifier:       verifier,
		providers:      providers,
		mailer:         mailer,
		eventBus:       eventBus,
		config:         config,
	}
}

func (s *identityService) RegisterIndividual(ctx context.Context, req *domain.RegisterIndividualRequest) (*domain.IndividualLoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	phoneTaken, emailTaken, err := s.individualRepo.ExistsPhoneOrEmail(ctx, req.Phone, req.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if phoneTaken {
		return nil, domain.ConflictError("phone already registered")
	}
	if emailTaken {
		return nil, domain.ConflictError("email already registered")
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.individualRepo.Create(ctx, req, passwordHash, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	event := events.IndividualRegisteredEvent{
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.IndividualRegistered, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish registration event", "error", err, "user_id", user.ID)
	}

	return s.individualLoginResponse(user)
}

func (s *identityService) RegisterCompany(ctx context.Context, req *domain.RegisterCompanyRequest) (*domain.CompanyLoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.companyRepo.FindByBusinessNumber(ctx, req.BusinessNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing company: %w", err)
	}
	if existing != nil {
		return nil, domain.ConflictError("business number already registered")
	}

	verified, err := s.verifier.IsVerified(ctx, req.BusinessNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to consult verification cache: %w", err)
	}
	if !verified {
		return nil, domain.AuthorizationError("business number verification required")
	}

	// Companies registered under an already-used phone join that account:
	// the password of record is the first sibling's, and the new row reuses
	// its hash so the whole group always authenticates identically.
	siblings, err := s.companyRepo.ListByPhone(ctx, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sibling companies: %w", err)
	}

	var passwordHash string
	if len(siblings) > 0 {
		match, err := argon2id.ComparePasswordAndHash(req.Password, siblings[0].PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("failed to verify password: %w", err)
		}
		if !match {
			return nil, domain.AuthenticationError("password does not match the existing account for this phone")
		}
		passwordHash = siblings[0].PasswordHash
	} else {
		passwordHash, err = argon2id.CreateHash(req.Password, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	company, err := s.companyRepo.Create(ctx, req, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	event := events.CompanyRegisteredEvent{
		CompanyID:      company.ID,
		BusinessNumber: company.BusinessNumber,
		CompanyName:    company.CompanyName,
		CreatedAt:      company.CreatedAt,
	}
	if err := s.eventBus.Publish(ctx, events.CompanyRegistered, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish company registration event", "error", err, "company_id", company.ID)
	}

	return s.companyLoginResponse(company, append(siblings, *company))
}

func (s *identityService) LoginIndividual(ctx context.Context, req *domain.LoginRequest) (*domain.IndividualLoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		user *domain.Individual
		err  error
	)
	if req.IsEmail() {
		user, err = s.individualRepo.FindByEmail(ctx, req.Identifier)
	} else {
		user, err = s.individualRepo.FindByPhone(ctx, req.Identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.AuthenticationError(domain.ErrInvalidCredentials)
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, domain.AuthenticationError(domain.ErrInvalidCredentials)
	}

	if err := s.individualRepo.TouchLastLogin(ctx, user.ID); err != nil {
		logger.WarnContext(ctx, "Failed to update last login", "error", err, "user_id", user.ID)
	}

	return s.individualLoginResponse(user)
}

func (s *identityService) LoginCompany(ctx context.Context, req *domain.LoginRequest) (*domain.CompanyLoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		companies []domain.Company
		err       error
	)
	if req.IsEmail() {
		companies, err = s.companyRepo.ListByEmail(ctx, req.Identifier)
	} else {
		companies, err = s.companyRepo.ListByPhone(ctx, req.Identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find companies: %w", err)
	}
	if len(companies) == 0 {
		return nil, domain.AuthenticationError(domain.ErrInvalidCredentials)
	}

	// Siblings share one password by construction; the first row holds the
	// hash of record.
	match, err := argon2id.ComparePasswordAndHash(req.Password, companies[0].PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, domain.AuthenticationError(domain.ErrInvalidCredentials)
	}

	active := &companies[0]
	if req.DefaultCompanyID != nil {
		for i := range companies {
			if companies[i].ID == *req.DefaultCompanyID {
				active = &companies[i]
				break
			}
		}
	}

	return s.companyLoginResponse(active, companies)
}

func (s *identityService) SwitchCompany(ctx context.Context, callerCompanyID int64, req *domain.SwitchCompanyRequest) (*domain.CompanyLoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	caller, err := s.companyRepo.FindByID(ctx, callerCompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find caller company: %w", err)
	}
	if caller == nil {
		return nil, domain.AuthenticationError("session company no longer exists")
	}

	target, err := s.companyRepo.FindByID(ctx, req.TargetCompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find target company: %w", err)
	}
	if target == nil {
		return nil, domain.NotFoundError("company not found")
	}

	// Switching is a deliberate re-auth: the target must be a sibling of
	// the caller's account (same normalized phone) and the password is
	// checked against the target's own stored hash.
	if !utils.SamePhone(caller.Phone, target.Phone) {
		return nil, domain.AuthorizationError("company does not belong to this account")
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, target.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, domain.AuthenticationError(domain.ErrInvalidCredentials)
	}

	siblings, err := s.companyRepo.ListByPhone(ctx, target.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to list sibling companies: %w", err)
	}

	event := events.CompanySwitchedEvent{
		FromCompanyID: caller.ID,
		ToCompanyID:   target.ID,
		SwitchedAt:    time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.CompanySwitched, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish switch event", "error", err)
	}

	return s.companyLoginResponse(target, siblings)
}

func (s *identityService) GetIndividual(ctx context.Context, id int64) (*domain.Individual, error) {
	user, err := s.individualRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.NotFoundError("user not found")
	}
	return user, nil
}

func (s *identityService) GetCompany(ctx context.Context, id int64) (*domain.Company, error) {
	company, err := s.companyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, domain.NotFoundError("company not found")
	}
	return company, nil
}

func (s *identityService) UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateProfileRequest) (*domain.Individual, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.individualRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.NotFoundError("user not found")
	}

	if req.Phone != nil || req.Email != nil {
		phone, email := user.Phone, user.Email
		if req.Phone != nil {
			phone = *req.Phone
		}
		if req.Email != nil {
			email = utils.NormalizeEmail(*req.Email)
			req.Email = &email
		}
		phoneTaken, emailTaken, err := s.individualRepo.ExistsPhoneOrEmail(ctx, phone, email, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check uniqueness: %w", err)
		}
		if req.Phone != nil && phoneTaken {
			return nil, domain.ConflictError("phone already registered")
		}
		if req.Email != nil && emailTaken {
			return nil, domain.ConflictError("email already registered")
		}
	}

	if req.NewPassword != nil {
		match, err := argon2id.ComparePasswordAndHash(req.CurrentPassword, user.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("failed to verify password: %w", err)
		}
		if !match {
			return nil, domain.AuthenticationError("current password is incorrect")
		}

		newHash, err := argon2id.CreateHash(*req.NewPassword, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		if err := s.individualRepo.UpdatePassword(ctx, userID, newHash); err != nil {
			return nil, fmt.Errorf("failed to update password: %w", err)
		}
	}

	updated, err := s.individualRepo.Update(ctx, userID, req.Name, req.Phone, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

func (s *identityService) UpdateCompanyContactPhone(ctx context.Context, companyID int64, req *domain.UpdateContactPhoneRequest) (*domain.Company, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if company == nil {
		return nil, domain.NotFoundError("company not found")
	}

	contactPhone := req.ContactPhone
	if contactPhone != nil {
		trimmed := strings.TrimSpace(*contactPhone)
		if trimmed == "" {
			contactPhone = nil
		} else {
			contactPhone = &trimmed
		}
	}

	if err := s.companyRepo.UpdateContactPhone(ctx, companyID, contactPhone); err != nil {
		return nil, fmt.Errorf("failed to update contact phone: %w", err)
	}

	company.ContactPhone = contactPhone
	return company, nil
}

// RequestPasswordReset returns the reset URL so non-production callers can
// complete the flow without a working mail transport. An unknown email
// returns success with no URL; the response must not reveal which emails
// have accounts.
func (s *identityService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return "", domain.ValidationError("invalid email format")
	}

	user, err := s.individualRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", nil
	}

	token := uuid.NewString()
	code, err := generateResetCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash reset code: %w", err)
	}

	expiresAt := time.Now().Add(s.config.Auth.PasswordResetTTL)
	if err := s.resetRepo.Create(ctx, user.ID, token, string(codeHash), expiresAt); err != nil {
		return "", fmt.Errorf("failed to create reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.Email.FrontendURL, token)
	if err := s.mailer.SendPasswordResetEmail(user.Email, user.Name, resetURL, code); err != nil {
		// Mail failure must not block issuing the token.
		logger.ErrorContext(ctx, "Failed to send reset email", "error", err, "user_id", user.ID)
	}

	event := events.PasswordResetRequestedEvent{
		UserID:      user.ID,
		RequestedAt: time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.PasswordResetRequested, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reset event", "error", err)
	}

	return resetURL, nil
}

func (s *identityService) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	token, err := s.resetRepo.CheckCode(ctx, utils.NormalizeEmail(email), code)
	if err != nil {
		return "", fmt.Errorf("failed to check reset code: %w", err)
	}
	if token == "" {
		return "", domain.AuthenticationError("invalid or expired reset code")
	}
	return token, nil
}

func (s *identityService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.ValidationError("reset token is required")
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	newHash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.resetRepo.ConsumeAndUpdatePassword(ctx, token, newHash)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if userID == 0 {
		return domain.AuthenticationError("invalid or expired reset token")
	}
	return nil
}

func (s *identityService) OAuthLogin(ctx context.Context, providerName, code string) (*domain.IndividualLoginResponse, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, domain.ValidationError("unknown oauth provider: %s", providerName)
	}

	accessToken, err := provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange failed: %w", err)
	}

	profile, err := provider.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("oauth profile fetch failed: %w", err)
	}
	if profile.Email == "" {
		return nil, domain.ValidationError("oauth provider did not supply an email")
	}

	user, err := s.individualRepo.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		// OAuth accounts get a placeholder phone and an unusable random
		// password; they are marked verified because the provider already
		// proved the email.
		randomHash, err := argon2id.CreateHash(uuid.NewString(), argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
		}

		req := &domain.RegisterIndividualRequest{
			Name:  profile.DisplayName,
			Phone: fmt.Sprintf("%s_%s", profile.Provider, profile.ExternalID),
			Email: profile.Email,
		}
		if req.Name == "" {
			req.Name = profile.Email
		}

		user, err = s.individualRepo.Create(ctx, req, randomHash, true)
		if err != nil {
			return nil, fmt.Errorf("failed to create oauth user: %w", err)
		}

		event := events.IndividualRegisteredEvent{
			UserID:    user.ID,
			Email:     user.Email,
			Provider:  profile.Provider,
			CreatedAt: user.CreatedAt,
		}
		if err := s.eventBus.Publish(ctx, events.IndividualRegistered, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish registration event", "error", err, "user_id", user.ID)
		}
	}

	if err := s.individualRepo.TouchLastLogin(ctx, user.ID); err != nil {
		logger.WarnContext(ctx, "Failed to update last login", "error", err, "user_id", user.ID)
	}

	return s.individualLoginResponse(user)
}

func (s *identityService) individualLoginResponse(user *domain.Individual) (*domain.IndividualLoginResponse, error) {
	token, err := auth.NewToken(user.ID, auth.PrincipalIndividual, s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &domain.IndividualLoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Auth.TokenTTL.Seconds()),
		User:        user.ToInfo(),
	}, nil
}

func (s *identityService) companyLoginResponse(active *domain.Company, companies []domain.Company) (*domain.CompanyLoginResponse, error) {
	token, err := auth.NewToken(active.ID, auth.PrincipalCompany, s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &domain.CompanyLoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Auth.TokenTTL.Seconds()),
		User:        active.ToInfo(),
		Companies:   domain.CompanyInfos(companies),
	}, nil
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
