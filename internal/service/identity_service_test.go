package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/internal/service"
	"github.com/vnlease/vnlease-api/internal/utils"
	"github.com/vnlease/vnlease-api/internal/verify"
	"github.com/vnlease/vnlease-api/pkg/config"
	"github.com/vnlease/vnlease-api/pkg/events"
)

// ---------- Mocks ----------

type mockIndividualRepo struct {
	nextID int64
	users  map[int64]*domain.Individual
}

func newMockIndividualRepo() *mockIndividualRepo {
	return &mockIndividualRepo{nextID: 1, users: make(map[int64]*domain.Individual)}
}

func (m *mockIndividualRepo) Create(_ context.Context, req *domain.RegisterIndividualRequest, passwordHash string, preVerified bool) (*domain.Individual, error) {
	u := &domain.Individual{
		ID:           m.nextID,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		PasswordHash: passwordHash,
		IsVerified:   preVerified,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *mockIndividualRepo) FindByID(_ context.Context, id int64) (*domain.Individual, error) {
	return m.users[id], nil
}

func (m *mockIndividualRepo) FindByEmail(_ context.Context, email string) (*domain.Individual, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockIndividualRepo) FindByPhone(_ context.Context, phone string) (*domain.Individual, error) {
	for _, u := range m.users {
		if utils.SamePhone(u.Phone, phone) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockIndividualRepo) ExistsPhoneOrEmail(_ context.Context, phone, email string, excludeID int64) (bool, bool, error) {
	var phoneTaken, emailTaken bool
	for _, u := range m.users {
		if u.ID == excludeID {
			continue
		}
		if utils.SamePhone(u.Phone, phone) {
			phoneTaken = true
		}
		if strings.EqualFold(u.Email, email) {
			emailTaken = true
		}
	}
	return phoneTaken, emailTaken, nil
}

func (m *mockIndividualRepo) Update(_ context.Context, id int64, name, phone, email *string) (*domain.Individual, error) {
	u := m.users[id]
	if name != nil {
		u.Name = *name
	}
	if phone != nil {
		u.Phone = *phone
	}
	if email != nil {
		u.Email = *email
	}
	return u, nil
}

func (m *mockIndividualRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.users[id].PasswordHash = passwordHash
	return nil
}

func (m *mockIndividualRepo) TouchLastLogin(_ context.Context, id int64) error {
	now := time.Now()
	m.users[id].LastLogin = &now
	return nil
}

type mockCompanyRepo struct {
	nextID    int64
	companies map[int64]*domain.Company
}

func newMockCompanyRepo() *mockCompanyRepo {
	return &mockCompanyRepo{nextID: 1, companies: make(map[int64]*domain.Company)}
}

func (m *mockCompanyRepo) Create(_ context.Context, req *domain.RegisterCompanyRequest, passwordHash string) (*domain.Company, error) {
	now := time.Now()
	c := &domain.Company{
		ID:             m.nextID,
		BusinessNumber: req.BusinessNumber,
		CompanyName:    req.CompanyName,
		Representative: req.Representative,
		Phone:          req.Phone,
		Email:          req.Email,
		PasswordHash:   passwordHash,
		IsVerified:     true,
		VerifiedAt:     &now,
		CreatedAt:      now,
	}
	if req.ContactPhone != "" {
		c.ContactPhone = &req.ContactPhone
	}
	m.companies[c.ID] = c
	m.nextID++
	return c, nil
}

func (m *mockCompanyRepo) FindByID(_ context.Context, id int64) (*domain.Company, error) {
	return m.companies[id], nil
}

func (m *mockCompanyRepo) FindByBusinessNumber(_ context.Context, businessNumber string) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.BusinessNumber == businessNumber {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCompanyRepo) ListByPhone(_ context.Context, phone string) ([]domain.Company, error) {
	var out []domain.Company
	// Map order is random; return oldest first like the query does.
	for id := int64(1); id < m.nextID; id++ {
		c, ok := m.companies[id]
		if ok && utils.SamePhone(c.Phone, phone) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCompanyRepo) ListByEmail(_ context.Context, email string) ([]domain.Company, error) {
	var out []domain.Company
	for id := int64(1); id < m.nextID; id++ {
		c, ok := m.companies[id]
		if ok && strings.EqualFold(c.Email, email) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCompanyRepo) MarkVerified(_ context.Context, businessNumber string) (bool, error) {
	for _, c := range m.companies {
		if c.BusinessNumber == businessNumber && !c.IsVerified {
			c.IsVerified = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCompanyRepo) UpdateContactPhone(_ context.Context, id int64, contactPhone *string) error {
	m.companies[id].ContactPhone = contactPhone
	return nil
}

type mockResetRepo struct {
	tokens map[string]resetEntry // token -> entry
	users  *mockIndividualRepo
}

type resetEntry struct {
	userID    int64
	codeHash  string
	expiresAt time.Time
	used      bool
}

func newMockResetRepo() *mockResetRepo {
	return &mockResetRepo{tokens: make(map[string]resetEntry)}
}

func (m *mockResetRepo) Create(_ context.Context, userID int64, token, codeHash string, expiresAt time.Time) error {
	for t, e := range m.tokens {
		if e.userID == userID && !e.used {
			e.used = true
			m.tokens[t] = e
		}
	}
	m.tokens[token] = resetEntry{userID: userID, codeHash: codeHash, expiresAt: expiresAt}
	return nil
}

func (m *mockResetRepo) ConsumeAndUpdatePassword(_ context.Context, token, newPasswordHash string) (int64, error) {
	e, ok := m.tokens[token]
	if !ok || e.used || time.Now().After(e.expiresAt) {
		return 0, nil
	}
	e.used = true
	m.tokens[token] = e
	m.users.users[e.userID].PasswordHash = newPasswordHash
	return e.userID, nil
}

func (m *mockResetRepo) CheckCode(_ context.Context, email, code string) (string, error) {
	return "", nil
}

func (m *mockResetRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

// mockVerifySvc substitutes the business-number verification service;
// registration only consults IsVerified.
type mockVerifySvc struct {
	verified map[string]bool
}

func (m *mockVerifySvc) Verify(_ context.Context, _ string) (*verify.Result, error) {
	return nil, nil
}

func (m *mockVerifySvc) IsVerified(_ context.Context, businessNumber string) (bool, error) {
	return m.verified[businessNumber], nil
}

type mockMailer struct {
	lastTo   string
	lastURL  string
	lastCode string
}

func (m *mockMailer) SendPasswordResetEmail(toEmail, toName, resetURL, code string) error {
	m.lastTo = toEmail
	m.lastURL = resetURL
	m.lastCode = code
	return nil
}

// ---------- Fixtures ----------

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret",
			TokenTTL:         time.Hour,
			PasswordResetTTL: 24 * time.Hour,
		},
		Payment: config.PaymentConfig{ContactAmount: 10000},
		Email:   config.EmailConfig{FrontendURL: "http://localhost:3000"},
	}
}

type identityFixture struct {
	svc         service.IdentityService
	individuals *mockIndividualRepo
	companies   *mockCompanyRepo
	resets      *mockResetRepo
	verifier    *mockVerifySvc
	mailer      *mockMailer
}

func newIdentityFixture() *identityFixture {
	f := &identityFixture{
		individuals: newMockIndividualRepo(),
		companies:   newMockCompanyRepo(),
		resets:      newMockResetRepo(),
		verifier:    &mockVerifySvc{verified: make(map[string]bool)},
		mailer:      &mockMailer{},
	}
	f.resets.users = f.individuals
	f.svc = service.NewIdentityService(
		f.individuals, f.companies, f.resets,
		f.verifier, nil, f.mailer,
		events.NewNoopEventBus(), testConfig(),
	)
	return f
}

// ---------- Individual tests ----------

func TestRegisterIndividual(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture()

	resp, err := f.svc.RegisterIndividual(ctx, &domain.RegisterIndividualRequest{
		Name:     "Driver Kim",
		Phone:    "010-1234-5678",
		Email:    "Driver@Example.com",
		Password: "passw0rd1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected an access token")
	}
	if resp.User.Email != "driver@example.com" {
		t.Errorf("email not normalized: %q", resp.User.Email)
	}

	t.Run("duplicate phone with different formatting conflicts", func(t *testing.T) {
		_, err := f.svc.RegisterIndividual(ctx, &domain.RegisterIndividualRequest{
			Name:     "Other",
			Phone:    "01012345678",
			Email:    "other@example.com",
			Password: "passw0rd1",
		})
		if !domain.IsKind(err, domain.KindConflict) {
			t.Errorf("want conflict, got %v", err)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := f.svc.RegisterIndividual(ctx, &domain.RegisterIndividualRequest{
			Name:     "Other",
			Phone:    "010-9999-8888",
			Email:    "driver@example.com",
			Password: "passw0rd1",
		})
		if !domain.IsKind(err, domain.KindConflict) {
			t.Errorf("want conflict, got %v", err)
		}
	})

	t.Run("weak password rejected", func(t *testing.T) {
		_, err := f.svc.RegisterIndividual(ctx, &domain.RegisterIndividualRequest{
			Name:     "Weak",
			Phone:    "010-7777-6666",
			Email:    "weak@example.com",
			Password: "password",
		})
		if !domain.IsKind(err, domain.KindValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})
}

func TestLoginIndividual(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture()

	_, err := f.svc.RegisterIndividual(ctx, &domain.RegisterIndividualRequest{
		Name:     "Driver Kim",
		Phone:    "010-1234-5678",
		Email:    "driver@example.com",
		Password: "passw0rd1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("by email", func(t *testing.T) {
		resp, err := f.svc.LoginIndividual(ctx, &domain.LoginRequest{
			Identifier: "driver@example.com",
			Password:   "passw0rd1",
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if resp.User.Name != "Driver Kim" {
			t.Errorf("unexpected user: %+v", resp.User)
		}
	})

	t.Run("by phone with different formatting", func(t *testing.T) {
		_, err := f.svc.LoginIndividual(ctx, &domain.LoginRequest{
			Identifier: "01012345678",
			Password:   "passw0rd1",
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		_, errWrong := f.svc.LoginIndividual(ctx, &domain.LoginRequest{
			Identifier: "driver@example.com",
			Password:   "not-the-passw0rd",
		})
		_, errUnknown := f.svc.LoginIndividual(ctx, &domain.LoginRequest{
			Identifier: "nobody@example.com",
			Password:   "passw0rd1",
		})
		if !domain.IsKind(errWrong, domain.KindAuthentication) || !domain.IsKind(errUnknown, domain.KindAuthentication) {
			t.Fatalf("want authentication errors, got %v / %v", errWrong, errUnknown)
		}
		if errWrong.Error() != errUnknown.Error() {
			t.Errorf("messages differ: %q vs %q", errWrong.Error(), errUnknown.Error())
		}
	})
}

// ---------- Company tests ----------

func registerTestCompany(t *testing.T, f *identityFixture, businessNumber, name, phone, password string) *domain.CompanyLoginResponse {
	t.Helper()
	f.verifier.verified[businessNumber] = true
	resp, err := f.svc.RegisterCompany(context.Background(), &domain.RegisterCompanyRequest{
		BusinessNumber: businessNumber,
		CompanyName:    name,
		Representative: "Lee",
		Phone:          phone,
		Email:          "fleet@example.com",
		Password:       password,
	})
	if err != nil {
		t.Fatalf("register company %s: %v", name, err)
	}
	return resp
}

func TestRegisterCompany(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a fresh verification", func(t *testing.T) {
		f := newIdentityFixture()
		_, err := f.svc.RegisterCompany(ctx, &domain.RegisterCompanyRequest{
			BusinessNumber: "123-45-67890",
			CompanyName:    "Unverified Co",
			Representative: "Lee",
			Phone:          "02-555-1234",
			Email:          "fleet@example.com",
			Password:       "passw0rd1",
		})
		if !domain.IsKind(err, domain.KindAuthorization) {
			t.Fatalf("want authorization error, got %v", err)
		}
	})

	t.Run("business number registers once", func(t *testing.T) {
		f := newIdentityFixture()
		registerTestCompany(t, f, "123-45-67890", "First Co", "02-555-1234", "passw0rd1")

		f.verifier.verified["123-45-67890"] = true
		_, err := f.svc.RegisterCompany(ctx, &domain.RegisterCompanyRequest{
			BusinessNumber: "123-45-67890",
			CompanyName:    "Second Co",
			Representative: "Lee",
			Phone:          "02-555-9999",
			Email:          "fleet2@example.com",
			Password:       "passw0rd1",
		})
		if !domain.IsKind(err, domain.KindConflict) {
			t.Fatalf("want conflict, got %v", err)
		}
	})

	t.Run("second company on same phone must present the first password", func(t *testing.T) {
		f := newIdentityFixture()
		registerTestCompany(t, f, "123-45-67890", "First Co", "02-555-1234", "passw0rd1")

		f.verifier.verified["222-33-44444"] = true
		_, err := f.svc.RegisterCompany(ctx, &domain.RegisterCompanyRequest{
			BusinessNumber: "222-33-44444",
			CompanyName:    "Second Co",
			Representative: "Lee",
			Phone:          "025551234", // same phone, different formatting
			Email:          "fleet@example.com",
			Password:       "different1",
		})
		if !domain.IsKind(err, domain.KindAuthentication) {
			t.Fatalf("want authentication error, got %v", err)
		}

		resp := registerTestCompany(t, f, "222-33-44444", "Second Co", "025551234", "passw0rd1")
		if len(resp.Companies) != 2 {
			t.Fatalf("want 2 sibling companies, got %d", len(resp.Companies))
		}
	})

	t.Run("siblings reuse the first hash", func(t *testing.T) {
		f := newIdentityFixture()
		registerTestCompany(t, f, "123-45-67890", "First Co", "02-555-1234", "passw0rd1")
		registerTestCompany(t, f, "222-33-44444", "Second Co", "02-555-1234", "passw0rd1")

		first := f.companies.companies[1]
		second := f.companies.companies[2]
		if first.PasswordHash != second.PasswordHash {
			t.Error("sibling companies must share the password hash of record")
		}
		match, err := argon2id.ComparePasswordAndHash("passw0rd1", second.PasswordHash)
		if err != nil || !match {
			t.Errorf("shared hash does not verify: match=%v err=%v", match, err)
		}
	})
}

func TestLoginCompany(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture()
	registerTestCompany(t, f, "123-45-67890", "First Co", "02-555-1234", "passw0rd1")
	registerTestCompany(t, f, "222-33-44444", "Second Co", "02-555-1234", "passw0rd1")

	t.Run("fans out every sibling", func(t *testing.T) {
		resp, err := f.svc.LoginCompany(ctx, &domain.LoginRequest{
			Identifier: "02-555-1234",
			Password:   "passw0rd1",
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if len(resp.Companies) != 2 {
			t.Fatalf("want 2 companies, got %d", len(resp.Companies))
		}
		if resp.User.CompanyName != "First Co" {
			t.Errorf("default active company should be the oldest, got %q", resp.User.CompanyName)
		}
	})

	t.Run("default company id selects the active company", func(t *testing.T) {
		target := int64(2)
		resp, err := f.svc.LoginCompany(ctx, &domain.LoginRequest{
			Identifier:       "02-555-1234",
			Password:         "passw0rd1",
			DefaultCompanyID: &target,
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if resp.User.ID != 2 || resp.User.CompanyName != "Second Co" {
			t.Errorf("want Second Co active, got %+v", resp.User)
		}
	})

	t.Run("unknown identifier fails like a wrong password", func(t *testing.T) {
		_, errUnknown := f.svc.LoginCompany(ctx, &domain.LoginRequest{
			Identifier: "02-000-0000",
			Password:   "passw0rd1",
		})
		_, errWrong := f.svc.LoginCompany(ctx, &domain.LoginRequest{
			Identifier: "02-555-1234",
			Password:   "wrongpass1",
		})
		if errUnknown == nil || errWrong == nil || errUnknown.Error() != errWrong.Error() {
			t.Errorf("messages differ: %v vs %v", errUnknown, errWrong)
		}
	})
}

func TestSwitchCompany(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture()
	registerTestCompany(t, f, "123-45-67890", "First Co", "02-555-1234", "passw0rd1")
	registerTestCompany(t, f, "222-33-44444", "Second Co", "02-555-1234", "passw0rd1")

	// A company on a different phone: not part of this account.
	registerTestCompany(t, f, "555-66-77777", "Stranger Co", "031-777-8888", "otherpw99")

	t.Run("switches to a sibling after re-auth", func(t *testing.T) {
		resp, err := f.svc.SwitchCompany(ctx, 1, &domain.SwitchCompanyRequest{
			TargetCompanyID: 2,
			Password:        "passw0rd1",
		})
		if err != nil {
			t.Fatalf("switch: %v", err)
		}
		if resp.User.ID != 2 {
			t.Errorf("want active company 2, got %d", resp.User.ID)
		}
		if len(resp.Companies) != 2 {
			t.Errorf("want 2 siblings, got %d", len(resp.Companies))
		}
		if resp.AccessToken == "" {
			t.Error("switch must mint a fresh token")
		}
	})

	t.Run("refuses a company on another phone", func(t *testing.T) {
		_, err := f.svc.SwitchCompany(ctx, 1, &domain.SwitchCompanyRequest{
			TargetCompanyID: 3,
			Password:        "passw0rd1",
		})
		if !domain.IsKind(err, domain.KindAuthorization) {
			t.Errorf("want authorization error, got %v", err)
		}
	})

	t.Run("refuses a wrong password", func(t *testing.T) {
		_, err := f.svc.SwitchCompany(ctx, 1, &domain.SwitchCompanyRequest{
			TargetCompanyID: 2,
			Password:        "wrongpass1",
		})
		if !domain.IsKind(err, domain.KindAuthentication) {
			t.Errorf("want authentication error, got %v", err)
		}
	})

	t.Run("unknown target is not found", func(t *testing.T) {
		_, err := f.svc.SwitchCompany(ctx, 1, &domain.SwitchCompanyRequest{
			TargetCompanyID: 99,
			Password:        "passw0rd1",
		})
		if !domain.IsKind(err, domain.KindNotFound) {
			t.Errorf("want not found, got %v", err)
		}
	})
}

func TestUpdateCompanyContactPhone(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture()
	registerTestCompany(t, f, "123-45-67890", "Fleet Co", "02-555-1234", "passw0rd1")

	t.Run("sets the disclosure number", func(t *testing.T) {
		phone := "010-9999-0000"
		company, err := f.svc.UpdateCompanyContactPhone(ctx, 1, &domain.UpdateContactPhoneRequest{
			ContactPhone: &phone,
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if company.ID != 1 {
			t.Errorf("want company 1, got %d", company.ID)
		}
		stored := f.companies.companies[1].ContactPhone
		if stored == nil || *stored != "010-9999-0000" {
			t.Errorf("want stored contact phone 010-9999-0000, got %v", stored)
		}
	})

	t.Run("empty value clears it", func(t *testing.T) {
		empty := ""
		_, err := f.svc.UpdateCompanyContactPhone(ctx, 1, &domain.UpdateContactPhoneRequest{
			ContactPhone: &empty,
		})
		if err != nil {
			t.Fatalf("clear: %v", err)
		}
		if f.companies.companies[1].ContactPhone != nil {
			t.Error("want contact phone cleared")
		}
	})

	t.Run("rejects a malformed number", func(t *testing.T) {
		bad := "not-a-phone"
		_, err := f.svc.UpdateCompanyContactPhone(ctx, 1, &domain.UpdateContactPhoneRequest{
			ContactPhone: &bad,
		})
		if !domain.IsKind(err, domain.KindValidation) {
			t.Fatalf("want validation error, got %v", err)
		}
	})

	t.Run("unknown company is not found", func(t *testing.T) {
		phone := "010-9999-0000"
		_, err := f.svc.UpdateCompanyContactPhone(ctx, 99, &domain.UpdateContactPhoneRequest{
			ContactPhone: &phone,
		})
		if !domain.IsKind(err, domain.KindNotFound) {
			t.Fatalf("want not found, got %v", err)
		}
	})
}

// ---------- Password reset tests ----------

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture()

	_, err := f.svc.RegisterIndividual(ctx, &domain.RegisterIndividualRequest{
		Name:     "Driver Kim",
		Phone:    "010-1234-5678",
		Email:    "driver@example.com",
		Password: "passw0rd1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		url, err := f.svc.RequestPasswordReset(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if url != "" {
			t.Error("unknown email must not produce a reset URL")
		}
		if len(f.resets.tokens) != 0 {
			t.Error("unknown email must not create a token")
		}
	})

	t.Run("full reset flow", func(t *testing.T) {
		url, err := f.svc.RequestPasswordReset(ctx, "Driver@Example.com")
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if !strings.Contains(url, "token=") {
			t.Fatalf("unexpected reset URL %q", url)
		}
		if f.mailer.lastTo != "driver@example.com" {
			t.Errorf("mail sent to %q", f.mailer.lastTo)
		}
		if len(f.mailer.lastCode) != 6 {
			t.Errorf("want 6-digit code, got %q", f.mailer.lastCode)
		}

		token := url[strings.Index(url, "token=")+len("token="):]
		if err := f.svc.ResetPassword(ctx, token, "newpassw0rd"); err != nil {
			t.Fatalf("reset: %v", err)
		}

		if _, err := f.svc.LoginIndividual(ctx, &domain.LoginRequest{
			Identifier: "driver@example.com",
			Password:   "newpassw0rd",
		}); err != nil {
			t.Fatalf("login with new password: %v", err)
		}
		if _, err := f.svc.LoginIndividual(ctx, &domain.LoginRequest{
			Identifier: "driver@example.com",
			Password:   "passw0rd1",
		}); !domain.IsKind(err, domain.KindAuthentication) {
			t.Errorf("old password must stop working, got %v", err)
		}

		if err := f.svc.ResetPassword(ctx, token, "anotherpw1"); !domain.IsKind(err, domain.KindAuthentication) {
			t.Errorf("token must be single use, got %v", err)
		}
	})

	t.Run("new request invalidates the previous token", func(t *testing.T) {
		first, err := f.svc.RequestPasswordReset(ctx, "driver@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.svc.RequestPasswordReset(ctx, "driver@example.com"); err != nil {
			t.Fatal(err)
		}

		oldToken := first[strings.Index(first, "token=")+len("token="):]
		if err := f.svc.ResetPassword(ctx, oldToken, "freshpass1"); !domain.IsKind(err, domain.KindAuthentication) {
			t.Errorf("stale token must be rejected, got %v", err)
		}
	})

	t.Run("weak replacement password rejected before consuming token", func(t *testing.T) {
		url, err := f.svc.RequestPasswordReset(ctx, "driver@example.com")
		if err != nil {
			t.Fatal(err)
		}
		token := url[strings.Index(url, "token=")+len("token="):]
		if err := f.svc.ResetPassword(ctx, token, "short"); !domain.IsKind(err, domain.KindValidation) {
			t.Fatalf("want validation error, got %v", err)
		}
		// Token survives the failed attempt.
		if err := f.svc.ResetPassword(ctx, token, "properpw12"); err != nil {
			t.Errorf("token should remain usable: %v", err)
		}
	})
}
