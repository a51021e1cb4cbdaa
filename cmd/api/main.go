package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/vnlease/vnlease-api/internal/handlers"
	"github.com/vnlease/vnlease-api/internal/mailer"
	"github.com/vnlease/vnlease-api/internal/oauth"
	"github.com/vnlease/vnlease-api/internal/payment"
	"github.com/vnlease/vnlease-api/internal/repository"
	"github.com/vnlease/vnlease-api/internal/service"
	"github.com/vnlease/vnlease-api/internal/verify"
	authpkg "github.com/vnlease/vnlease-api/pkg/auth"
	"github.com/vnlease/vnlease-api/pkg/config"
	"github.com/vnlease/vnlease-api/pkg/database"
	"github.com/vnlease/vnlease-api/pkg/events"
	"github.com/vnlease/vnlease-api/pkg/logger"
	mw "github.com/vnlease/vnlease-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var eventBus events.EventBus
	if cfg.NATS.Enabled {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	} else {
		eventBus = events.NewNoopEventBus()
	}
	defer eventBus.Close()

	// Repositories
	individualRepo := repository.NewIndividualRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	vehicleRepo := repository.NewVehicleRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	resetRepo := repository.NewResetRepository(pool)

	// Verification cache: Redis owns expiry when enabled, otherwise an
	// in-process map with an hourly sweep.
	var cache verify.Cache
	if cfg.Redis.Enabled {
		rc, err := verify.NewRedisCache(cfg.Redis.URL, cfg.Verifier.CacheTTL)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		cache = rc
	} else {
		cache = verify.NewMemoryCache(cfg.Verifier.CacheTTL)
	}

	registry := verify.NewRegistryClient(cfg.Verifier.BaseURL, cfg.Verifier.ServiceKey, cfg.Verifier.Timeout)
	verifyService := verify.NewService(cache, registry, companyRepo, eventBus)

	// Mail transport
	var mail mailer.Service
	switch {
	case cfg.Email.DevMode:
		mail = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, "VNLease", cfg.Email.SMTPFrom)
	default:
		mail = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
			cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}

	providers := map[string]oauth.Provider{
		"kakao":  oauth.NewKakaoProvider(cfg.OAuth.KakaoClientID, cfg.OAuth.KakaoClientSecret, cfg.OAuth.KakaoRedirectURL),
		"google": oauth.NewGoogleProvider(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, cfg.OAuth.GoogleRedirectURL),
	}

	// Payment gateway
	var (
		gateway       payment.Gateway
		stripeGateway *payment.StripeGateway
	)
	if cfg.Payment.Gateway == "stripe" && cfg.Payment.StripeSecretKey != "" {
		stripeGateway = payment.NewStripeGateway(cfg.Payment.StripeSecretKey, cfg.Payment.StripeWebhookSecret)
		gateway = stripeGateway
	} else {
		gateway = payment.NewInstantGateway()
	}

	// Services
	identityService := service.NewIdentityService(individualRepo, companyRepo, resetRepo, verifyService, providers, mail, eventBus, cfg)
	vehicleService := service.NewVehicleService(vehicleRepo, companyRepo, eventBus)
	paymentService := service.NewPaymentService(paymentRepo, vehicleRepo, gateway, eventBus, cfg)
	disclosureService := service.NewDisclosureService(vehicleRepo, companyRepo, paymentRepo, eventBus)

	h := handlers.New(identityService, vehicleService, paymentService, disclosureService, verifyService, stripeGateway, cfg)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Email.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		// Identity
		r.Post("/auth/register/individual", h.RegisterIndividual)
		r.Post("/auth/register/company", h.RegisterCompany)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/oauth/{provider}", h.OAuthLogin)
		r.Post("/auth/password-reset/request", h.RequestPasswordReset)
		r.Post("/auth/password-reset/verify-code", h.VerifyResetCode)
		r.Post("/auth/password-reset/confirm", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(""))
			r.Get("/auth/me", h.Me)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(authpkg.PrincipalIndividual))
			r.Patch("/auth/profile", h.UpdateProfile)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(authpkg.PrincipalCompany))
			r.Post("/auth/switch-company", h.SwitchCompany)
			r.Patch("/companies/me/contact-phone", h.UpdateContactPhone)
		})

		// Business-number verification
		r.Post("/verify/business-number", h.VerifyBusinessNumber)

		// Public catalog (no contact fields, ever)
		r.Get("/vehicles", h.ListVehicles)
		r.Get("/vehicles/{id}", h.GetVehicleDetail)

		// Company listing management
		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(authpkg.PrincipalCompany))
			r.Post("/vehicles", h.CreateVehicle)
			r.Patch("/vehicles/{id}", h.UpdateVehicle)
			r.Delete("/vehicles/{id}", h.DeleteVehicle)
			r.Get("/companies/me/vehicles", h.ListMyVehicles)
		})

		// Payments and disclosure (drivers only)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(authpkg.PrincipalIndividual))
			r.Post("/payments", h.CreatePayment)
			r.Get("/payments/status/{vehicleID}", h.GetPaymentStatus)
			r.Get("/payments/me", h.ListMyPayments)
			r.Get("/vehicles/{id}/contact", h.GetVehicleContact)
		})

		// Gateway callbacks
		r.Post("/payments/webhook/stripe", h.StripeWebhook)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		verify.RunSweeper(gctx, cache, cfg.Verifier.SweepEvery)
		return nil
	})

	g.Go(func() error {
		service.RunResetCleanup(gctx, resetRepo, cfg.Auth.ResetCleanupEvery)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down API server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}
