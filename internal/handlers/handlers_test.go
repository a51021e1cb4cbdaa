package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/internal/handlers"
	"github.com/vnlease/vnlease-api/internal/payment"
	"github.com/vnlease/vnlease-api/internal/service"
	"github.com/vnlease/vnlease-api/internal/utils"
	"github.com/vnlease/vnlease-api/internal/verify"
	"github.com/vnlease/vnlease-api/pkg/auth"
	"github.com/vnlease/vnlease-api/pkg/config"
	"github.com/vnlease/vnlease-api/pkg/events"
)

// ---------- Mocks ----------

type memIndividualRepo struct {
	nextID int64
	users  map[int64]*domain.Individual
}

func (m *memIndividualRepo) Create(_ context.Context, req *domain.RegisterIndividualRequest, hash string, preVerified bool) (*domain.Individual, error) {
	u := &domain.Individual{ID: m.nextID, Name: req.Name, Phone: req.Phone, Email: req.Email,
		PasswordHash: hash, IsVerified: preVerified, CreatedAt: time.Now()}
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *memIndividualRepo) FindByID(_ context.Context, id int64) (*domain.Individual, error) {
	return m.users[id], nil
}

func (m *memIndividualRepo) FindByEmail(_ context.Context, email string) (*domain.Individual, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memIndividualRepo) FindByPhone(_ context.Context, phone string) (*domain.Individual, error) {
	for _, u := range m.users {
		if utils.SamePhone(u.Phone, phone) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memIndividualRepo) ExistsPhoneOrEmail(_ context.Context, phone, email string, excludeID int64) (bool, bool, error) {
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

func (m *memIndividualRepo) Update(_ context.Context, id int64, name, phone, email *string) (*domain.Individual, error) {
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

func (m *memIndividualRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.users[id].PasswordHash = hash
	return nil
}

func (m *memIndividualRepo) TouchLastLogin(_ context.Context, id int64) error { return nil }

type memCompanyRepo struct {
	nextID    int64
	companies map[int64]*domain.Company
}

func (m *memCompanyRepo) Create(_ context.Context, req *domain.RegisterCompanyRequest, hash string) (*domain.Company, error) {
	now := time.Now()
	c := &domain.Company{ID: m.nextID, BusinessNumber: req.BusinessNumber, CompanyName: req.CompanyName,
		Representative: req.Representative, Phone: req.Phone, Email: req.Email,
		PasswordHash: hash, IsVerified: true, VerifiedAt: &now, CreatedAt: now}
	if req.ContactPhone != "" {
		c.ContactPhone = &req.ContactPhone
	}
	m.companies[c.ID] = c
	m.nextID++
	return c, nil
}

func (m *memCompanyRepo) FindByID(_ context.Context, id int64) (*domain.Company, error) {
	return m.companies[id], nil
}

func (m *memCompanyRepo) FindByBusinessNumber(_ context.Context, n string) (*domain.Company, error) {
	for _, c := range m.companies {
		if c.BusinessNumber == n {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memCompanyRepo) ListByPhone(_ context.Context, phone string) ([]domain.Company, error) {
	var out []domain.Company
	for id := int64(1); id < m.nextID; id++ {
		if c, ok := m.companies[id]; ok && utils.SamePhone(c.Phone, phone) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCompanyRepo) ListByEmail(_ context.Context, email string) ([]domain.Company, error) {
	var out []domain.Company
	for id := int64(1); id < m.nextID; id++ {
		if c, ok := m.companies[id]; ok && strings.EqualFold(c.Email, email) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCompanyRepo) MarkVerified(_ context.Context, n string) (bool, error) {
	for _, c := range m.companies {
		if c.BusinessNumber == n && !c.IsVerified {
			c.IsVerified = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memCompanyRepo) UpdateContactPhone(_ context.Context, id int64, p *string) error {
	m.companies[id].ContactPhone = p
	return nil
}

type memVehicleRepo struct {
	nextID   int64
	vehicles map[int64]*domain.Vehicle
	names    map[int64]string // company id -> display name
}

func (m *memVehicleRepo) Create(_ context.Context, companyID int64, req *domain.CreateVehicleRequest) (*domain.Vehicle, error) {
	v := &domain.Vehicle{ID: m.nextID, CompanyID: companyID, VehicleNumber: req.VehicleNumber,
		VehicleType: req.VehicleType, Region: req.Region, InsuranceRate: req.InsuranceRate,
		MonthlyFee: req.MonthlyFee, IsAvailable: true, CreatedAt: time.Now()}
	m.vehicles[v.ID] = v
	m.nextID++
	return v, nil
}

func (m *memVehicleRepo) FindByID(_ context.Context, id int64) (*domain.Vehicle, error) {
	return m.vehicles[id], nil
}

func (m *memVehicleRepo) summary(v *domain.Vehicle) domain.VehicleSummary {
	return domain.VehicleSummary{
		ID: v.ID, CompanyName: m.names[v.CompanyID], VehicleNumber: v.VehicleNumber,
		VehicleType: v.VehicleType, Region: v.Region, InsuranceRate: v.InsuranceRate,
		MonthlyFee: v.MonthlyFee, IsAvailable: v.IsAvailable, ViewCount: v.ViewCount,
		CreatedAt: v.CreatedAt,
	}
}

func (m *memVehicleRepo) FindSummaryByID(_ context.Context, id int64) (*domain.VehicleSummary, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return nil, nil
	}
	s := m.summary(v)
	return &s, nil
}

func (m *memVehicleRepo) ListAvailable(_ context.Context, filter domain.VehicleFilter, limit, offset int) ([]domain.VehicleSummary, error) {
	var out []domain.VehicleSummary
	for id := int64(1); id < m.nextID; id++ {
		v, ok := m.vehicles[id]
		if !ok || !v.IsAvailable {
			continue
		}
		if filter.Region != "" && v.Region != filter.Region {
			continue
		}
		out = append(out, m.summary(v))
	}
	return out, nil
}

func (m *memVehicleRepo) ListByCompany(_ context.Context, companyID int64) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	for id := int64(1); id < m.nextID; id++ {
		if v, ok := m.vehicles[id]; ok && v.CompanyID == companyID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memVehicleRepo) Update(_ context.Context, id, companyID int64, req *domain.UpdateVehicleRequest) (*domain.Vehicle, error) {
	v, ok := m.vehicles[id]
	if !ok || v.CompanyID != companyID {
		return nil, nil
	}
	if req.IsAvailable != nil {
		v.IsAvailable = *req.IsAvailable
	}
	return v, nil
}

func (m *memVehicleRepo) Delete(_ context.Context, id, companyID int64) (bool, error) {
	v, ok := m.vehicles[id]
	if !ok || v.CompanyID != companyID {
		return false, nil
	}
	delete(m.vehicles, id)
	return true, nil
}

func (m *memVehicleRepo) IncrementViewCount(_ context.Context, id int64) error {
	if v, ok := m.vehicles[id]; ok {
		v.ViewCount++
	}
	return nil
}

type memPaymentRepo struct {
	nextID   int64
	payments map[int64]*domain.Payment
}

func (m *memPaymentRepo) CreatePending(_ context.Context, userID, vehicleID, amount int64, ref *string) (*domain.Payment, error) {
	p := &domain.Payment{ID: m.nextID, UserID: userID, VehicleID: vehicleID, Amount: amount,
		Status: domain.PaymentPending, GatewayRef: ref, CreatedAt: time.Now()}
	m.payments[p.ID] = p
	m.nextID++
	return p, nil
}

func (m *memPaymentRepo) MarkCompleted(_ context.Context, id int64, method string) (*domain.Payment, error) {
	p, ok := m.payments[id]
	if !ok || p.Status != domain.PaymentPending {
		return nil, nil
	}
	now := time.Now()
	p.Status = domain.PaymentCompleted
	p.PaymentMethod = &method
	p.PaidAt = &now
	return p, nil
}

func (m *memPaymentRepo) MarkFailed(_ context.Context, id int64) error {
	if p, ok := m.payments[id]; ok {
		p.Status = domain.PaymentFailed
	}
	return nil
}

func (m *memPaymentRepo) SetGatewayRef(_ context.Context, id int64, ref string) error {
	if p, ok := m.payments[id]; ok && p.Status == domain.PaymentPending {
		p.GatewayRef = &ref
	}
	return nil
}

func (m *memPaymentRepo) FindByGatewayRef(_ context.Context, ref string) (*domain.Payment, error) {
	for _, p := range m.payments {
		if p.GatewayRef != nil && *p.GatewayRef == ref {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memPaymentRepo) HasCompleted(_ context.Context, userID, vehicleID int64) (bool, error) {
	for _, p := range m.payments {
		if p.UserID == userID && p.VehicleID == vehicleID && p.Status == domain.PaymentCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPaymentRepo) LatestFor(_ context.Context, userID, vehicleID int64) (*domain.Payment, error) {
	var latest *domain.Payment
	for id := int64(1); id < m.nextID; id++ {
		if p, ok := m.payments[id]; ok && p.UserID == userID && p.VehicleID == vehicleID {
			latest = p
		}
	}
	return latest, nil
}

func (m *memPaymentRepo) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.PaymentWithVehicle, error) {
	var out []domain.PaymentWithVehicle
	for id := m.nextID - 1; id >= 1; id-- {
		if p, ok := m.payments[id]; ok && p.UserID == userID {
			out = append(out, domain.PaymentWithVehicle{Payment: *p})
		}
	}
	return out, nil
}

type memResetRepo struct{}

func (memResetRepo) Create(context.Context, int64, string, string, time.Time) error { return nil }
func (memResetRepo) ConsumeAndUpdatePassword(context.Context, string, string) (int64, error) {
	return 0, nil
}
func (memResetRepo) CheckCode(context.Context, string, string) (string, error) { return "", nil }
func (memResetRepo) DeleteExpired(context.Context) (int64, error)              { return 0, nil }

type stubRegistry struct{ valid bool }

func (s *stubRegistry) Check(context.Context, string) (bool, error) { return s.valid, nil }

type noopMailer struct{}

func (noopMailer) SendPasswordResetEmail(string, string, string, string) error { return nil }

// ---------- Fixture ----------

type apiFixture struct {
	router    chi.Router
	companies *memCompanyRepo
	vehicles  *memVehicleRepo
	registry  *stubRegistry
}

func newAPIFixture() *apiFixture {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret",
			TokenTTL:         time.Hour,
			PasswordResetTTL: 24 * time.Hour,
		},
		Payment: config.PaymentConfig{ContactAmount: 10000},
		Email:   config.EmailConfig{FrontendURL: "http://localhost:3000"},
	}

	individuals := &memIndividualRepo{nextID: 1, users: make(map[int64]*domain.Individual)}
	companies := &memCompanyRepo{nextID: 1, companies: make(map[int64]*domain.Company)}
	vehicles := &memVehicleRepo{nextID: 1, vehicles: make(map[int64]*domain.Vehicle), names: make(map[int64]string)}
	payments := &memPaymentRepo{nextID: 1, payments: make(map[int64]*domain.Payment)}

	bus := events.NewNoopEventBus()
	registry := &stubRegistry{valid: true}
	verifyService := verify.NewService(verify.NewMemoryCache(24*time.Hour), registry, companies, bus)

	identityService := service.NewIdentityService(individuals, companies, memResetRepo{}, verifyService, nil, noopMailer{}, bus, cfg)
	vehicleService := service.NewVehicleService(vehicles, companies, bus)
	paymentService := service.NewPaymentService(payments, vehicles, payment.NewInstantGateway(), bus, cfg)
	disclosureService := service.NewDisclosureService(vehicles, companies, payments, bus)

	h := handlers.New(identityService, vehicleService, paymentService, disclosureService, verifyService, nil, cfg)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register/individual", h.RegisterIndividual)
		r.Post("/auth/register/company", h.RegisterCompany)
		r.Post("/auth/login", h.Login)
		r.Post("/verify/business-number", h.VerifyBusinessNumber)
		r.Get("/vehicles", h.ListVehicles)
		r.Get("/vehicles/{id}", h.GetVehicleDetail)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(auth.PrincipalCompany))
			r.Post("/auth/switch-company", h.SwitchCompany)
			r.Patch("/companies/me/contact-phone", h.UpdateContactPhone)
			r.Post("/vehicles", h.CreateVehicle)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(auth.PrincipalIndividual))
			r.Post("/payments", h.CreatePayment)
			r.Get("/payments/status/{vehicleID}", h.GetPaymentStatus)
			r.Get("/vehicles/{id}/contact", h.GetVehicleContact)
		})
	})

	return &apiFixture{router: r, companies: companies, vehicles: vehicles, registry: registry}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func (f *apiFixture) registerCompany(t *testing.T, businessNumber, name, phone, password string) *domain.CompanyLoginResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/verify/business-number", "", map[string]string{
		"business_number": businessNumber,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify business number: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/auth/register/company", "", map[string]string{
		"business_number": businessNumber,
		"company_name":    name,
		"representative":  "Lee",
		"phone":           phone,
		"contact_phone":   "010-9999-0000",
		"email":           "fleet@example.com",
		"password":        password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register company: %d %s", rec.Code, rec.Body.String())
	}

	var resp domain.CompanyLoginResponse
	decode(t, rec, &resp)
	f.vehicles.names[resp.User.ID] = name
	return &resp
}

func (f *apiFixture) registerIndividual(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/auth/register/individual", "", map[string]string{
		"name":     "Driver Kim",
		"phone":    "010-1234-5678",
		"email":    "driver@example.com",
		"password": "passw0rd1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register individual: %d %s", rec.Code, rec.Body.String())
	}
	var resp domain.IndividualLoginResponse
	decode(t, rec, &resp)
	return resp.AccessToken
}

// ---------- Scenario tests ----------

func TestContactDisclosureFlow(t *testing.T) {
	f := newAPIFixture()

	company := f.registerCompany(t, "123-45-67890", "Fleet Co", "02-555-1234", "passw0rd1")

	rec := f.do(t, http.MethodPost, "/api/vehicles", company.AccessToken, map[string]interface{}{
		"vehicle_number": "88-1234",
		"vehicle_type":   "cargo",
		"region":         "seoul",
		"insurance_rate": 3.5,
		"monthly_fee":    500000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create vehicle: %d %s", rec.Code, rec.Body.String())
	}
	var vehicle domain.Vehicle
	decode(t, rec, &vehicle)

	driverToken := f.registerIndividual(t)

	t.Run("public listing has no contact fields", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/vehicles", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list: %d", rec.Code)
		}
		body := rec.Body.String()
		if strings.Contains(body, "010-9999-0000") || strings.Contains(body, "02-555-1234") {
			t.Errorf("listing leaks contact info: %s", body)
		}
		if !strings.Contains(body, "Fleet Co") {
			t.Errorf("listing should show the company name: %s", body)
		}
	})

	t.Run("contact requires authentication", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/vehicles/%d/contact", vehicle.ID), "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("want 401, got %d", rec.Code)
		}
	})

	t.Run("contact before payment is forbidden", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/vehicles/%d/contact", vehicle.ID), driverToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("want 403, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("payment then contact", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/payments", driverToken, map[string]int64{"vehicle_id": vehicle.ID})
		if rec.Code != http.StatusCreated {
			t.Fatalf("payment: %d %s", rec.Code, rec.Body.String())
		}
		var p domain.Payment
		decode(t, rec, &p)
		if p.Status != domain.PaymentCompleted {
			t.Fatalf("want completed payment, got %s", p.Status)
		}

		rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/payments/status/%d", vehicle.ID), driverToken, nil)
		var status domain.PaymentStatusResponse
		decode(t, rec, &status)
		if !status.HasPaid {
			t.Error("status should report paid")
		}

		rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/vehicles/%d/contact", vehicle.ID), driverToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("contact: %d %s", rec.Code, rec.Body.String())
		}
		var contact domain.ContactInfo
		decode(t, rec, &contact)
		if contact.ContactPhone != "010-9999-0000" {
			t.Errorf("contact phone: %q", contact.ContactPhone)
		}
		if contact.CompanyName != "Fleet Co" {
			t.Errorf("company name: %q", contact.CompanyName)
		}
	})

	t.Run("company can change the disclosed number", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/companies/me/contact-phone", company.AccessToken, map[string]string{
			"contact_phone": "010-7777-8888",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("update contact phone: %d %s", rec.Code, rec.Body.String())
		}

		rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/vehicles/%d/contact", vehicle.ID), driverToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("contact after update: %d", rec.Code)
		}
		var contact domain.ContactInfo
		decode(t, rec, &contact)
		if contact.ContactPhone != "010-7777-8888" {
			t.Errorf("want updated contact phone, got %q", contact.ContactPhone)
		}
	})

	t.Run("second payment for the same vehicle conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/payments", driverToken, map[string]int64{"vehicle_id": vehicle.ID})
		if rec.Code != http.StatusConflict {
			t.Errorf("want 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("missing vehicle contact is 404 even for a payer", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/vehicles/424242/contact", driverToken, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("want 404, got %d", rec.Code)
		}
	})

	t.Run("company token cannot buy contact access", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/payments", company.AccessToken, map[string]int64{"vehicle_id": vehicle.ID})
		if rec.Code != http.StatusForbidden {
			t.Errorf("want 403 for wrong principal type, got %d", rec.Code)
		}
	})
}

func TestMultiCompanyAccountFlow(t *testing.T) {
	f := newAPIFixture()

	first := f.registerCompany(t, "123-45-67890", "First Co", "02-555-1234", "passw0rd1")
	if len(first.Companies) != 1 {
		t.Fatalf("first registration should see one company, got %d", len(first.Companies))
	}

	t.Run("registration without verification is forbidden", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/auth/register/company", "", map[string]string{
			"business_number": "999-88-77777",
			"company_name":    "No Verify Co",
			"representative":  "Lee",
			"phone":           "02-111-2222",
			"email":           "fleet@example.com",
			"password":        "passw0rd1",
		})
		if rec.Code != http.StatusForbidden {
			t.Errorf("want 403, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("second company on the same phone joins the account", func(t *testing.T) {
		resp := f.registerCompany(t, "222-33-44444", "Second Co", "025551234", "passw0rd1")
		if len(resp.Companies) != 2 {
			t.Fatalf("want 2 sibling companies, got %d", len(resp.Companies))
		}
	})

	t.Run("login fans out all siblings", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
			"identifier":     "02-555-1234",
			"password":       "passw0rd1",
			"principal_type": "company",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
		}
		var resp domain.CompanyLoginResponse
		decode(t, rec, &resp)
		if len(resp.Companies) != 2 {
			t.Fatalf("want 2 companies in fan-out, got %d", len(resp.Companies))
		}
		if resp.User.CompanyName != "First Co" {
			t.Errorf("oldest company should be active by default, got %q", resp.User.CompanyName)
		}

		t.Run("switch company issues a token for the sibling", func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/auth/switch-company", resp.AccessToken, map[string]interface{}{
				"target_company_id": resp.Companies[1].ID,
				"password":          "passw0rd1",
			})
			if rec.Code != http.StatusOK {
				t.Fatalf("switch: %d %s", rec.Code, rec.Body.String())
			}
			var switched domain.CompanyLoginResponse
			decode(t, rec, &switched)
			if switched.User.CompanyName != "Second Co" {
				t.Errorf("active company after switch: %q", switched.User.CompanyName)
			}
			if switched.AccessToken == resp.AccessToken {
				t.Error("switch must mint a new token")
			}
		})

		t.Run("switch with wrong password is rejected", func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/auth/switch-company", resp.AccessToken, map[string]interface{}{
				"target_company_id": resp.Companies[1].ID,
				"password":          "wrongpass1",
			})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("want 401, got %d", rec.Code)
			}
		})
	})

	t.Run("registry rejection blocks verification", func(t *testing.T) {
		f.registry.valid = false
		rec := f.do(t, http.MethodPost, "/api/verify/business-number", "", map[string]string{
			"business_number": "555-66-77777",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("verify: %d", rec.Code)
		}
		var res verify.Result
		decode(t, rec, &res)
		if res.Valid {
			t.Error("registry said no; result must be invalid")
		}
	})
}
