package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/internal/repository"
	"github.com/vnlease/vnlease-api/pkg/events"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

// DisclosureService is the single choke point for revealing a company's
// contact channel. Listing and detail reads never carry contact fields for
// any caller; GetContactAfterPayment is the only path that does, and it
// requires a completed payment for the exact (user, vehicle) pair.
type DisclosureService interface {
	ListVehicles(ctx context.Context, filter domain.VehicleFilter, limit, offset int) ([]domain.VehicleSummary, error)
	GetVehicleDetail(ctx context.Context, id int64) (*domain.VehicleSummary, error)
	GetContactAfterPayment(ctx context.Context, userID, vehicleID int64) (*domain.ContactInfo, error)
}

type disclosureService struct {
	vehicleRepo repository.VehicleRepository
	companyRepo repository.CompanyRepository
	paymentRepo repository.PaymentRepository
	eventBus    events.EventBus
}

func NewDisclosureService(
	vehicleRepo repository.VehicleRepository,
	companyRepo repository.CompanyRepository,
	paymentRepo repository.PaymentRepository,
	eventBus events.EventBus,
) DisclosureService {
	return &disclosureService{
		vehicleRepo: vehicleRepo,
		companyRepo: companyRepo,
		paymentRepo: paymentRepo,
		eventBus:    eventBus,
	}
}

func (s *disclosureService) ListVehicles(ctx context.Context, filter domain.VehicleFilter, limit, offset int) ([]domain.VehicleSummary, error) {
	summaries, err := s.vehicleRepo.ListAvailable(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return summaries, nil
}

func (s *disclosureService) GetVehicleDetail(ctx context.Context, id int64) (*domain.VehicleSummary, error) {
	summary, err := s.vehicleRepo.FindSummaryByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	if summary == nil {
		return nil, domain.NotFoundError("vehicle not found")
	}

	// Best-effort view count: the read must not wait on it or fail with it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.vehicleRepo.IncrementViewCount(ctx, id); err != nil {
			logger.Warn("Failed to increment view count", "error", err, "vehicle_id", id)
		}
	}()

	return summary, nil
}

func (s *disclosureService) GetContactAfterPayment(ctx context.Context, userID, vehicleID int64) (*domain.ContactInfo, error) {
	vehicle, err := s.vehicleRepo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, domain.NotFoundError("vehicle not found")
	}

	paid, err := s.paymentRepo.HasCompleted(ctx, userID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment: %w", err)
	}
	if !paid {
		// The vehicle exists; the caller just hasn't bought access. This is
		// an authorization failure, never a not-found.
		return nil, domain.AuthorizationError("payment required to view contact information")
	}

	company, err := s.companyRepo.FindByID(ctx, vehicle.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if company == nil {
		return nil, domain.NotFoundError("company not found")
	}

	contactPhone := company.Phone
	if company.ContactPhone != nil && *company.ContactPhone != "" {
		contactPhone = *company.ContactPhone
	}

	event := events.ContactRevealedEvent{
		UserID:    userID,
		VehicleID: vehicleID,
		CompanyID: company.ID,
		ViewedAt:  time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.ContactRevealed, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish disclosure event", "error", err)
	}

	return &domain.ContactInfo{
		CompanyName:  company.CompanyName,
		ContactPhone: contactPhone,
	}, nil
}
