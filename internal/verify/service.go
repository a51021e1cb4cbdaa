package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/internal/repository"
	"github.com/vnlease/vnlease-api/pkg/events"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Service gates company registration: a company can only register with a
// business number that passed Verify less than the cache TTL ago.
type Service interface {
	Verify(ctx context.Context, businessNumber string) (*Result, error)
	IsVerified(ctx context.Context, businessNumber string) (bool, error)
}

type service struct {
	cache       Cache
	registry    RegistryClient
	companyRepo repository.CompanyRepository
	eventBus    events.EventBus
}

func NewService(cache Cache, registry RegistryClient, companyRepo repository.CompanyRepository, eventBus events.EventBus) Service {
	return &service{
		cache:       cache,
		registry:    registry,
		companyRepo: companyRepo,
		eventBus:    eventBus,
	}
}

func (s *service) Verify(ctx context.Context, businessNumber string) (*Result, error) {
	if !domain.IsValidBusinessNumber(businessNumber) {
		return nil, domain.ValidationError("business number must match 000-00-00000")
	}

	valid, err := s.registry.Check(ctx, businessNumber)
	if err != nil {
		return nil, fmt.Errorf("registry check failed: %w", err)
	}
	if !valid {
		return &Result{Valid: false, Message: "business number not recognized by registry"}, nil
	}

	if err := s.cache.Put(ctx, businessNumber); err != nil {
		return nil, fmt.Errorf("failed to record verification: %w", err)
	}

	// A company registered earlier under this number gets its flag flipped.
	flipped, err := s.companyRepo.MarkVerified(ctx, businessNumber)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to mark existing company verified", "error", err, "business_number", businessNumber)
	} else if flipped {
		logger.InfoContext(ctx, "Existing company marked verified", "business_number", businessNumber)
	}

	event := events.BusinessVerifiedEvent{
		BusinessNumber: businessNumber,
		VerifiedAt:     time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.BusinessVerified, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish verification event", "error", err)
	}

	return &Result{Valid: true, Message: "business number verified"}, nil
}

func (s *service) IsVerified(ctx context.Context, businessNumber string) (bool, error) {
	return s.cache.IsVerified(ctx, businessNumber)
}
