package service

import (
	"context"
	"fmt"

	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/internal/repository"
	"github.com/vnlease/vnlease-api/pkg/events"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

// VehicleService covers the company-side listing management. Public reads
// go through DisclosureService instead.
type VehicleService interface {
	Create(ctx context.Context, companyID int64, req *domain.CreateVehicleRequest) (*domain.Vehicle, error)
	Update(ctx context.Context, id, companyID int64, req *domain.UpdateVehicleRequest) (*domain.Vehicle, error)
	Delete(ctx context.Context, id, companyID int64) error
	ListMine(ctx context.Context, companyID int64) ([]domain.Vehicle, error)
}

type vehicleService struct {
	vehicleRepo repository.VehicleRepository
	companyRepo repository.CompanyRepository
	eventBus    events.EventBus
}

func NewVehicleService(
	vehicleRepo repository.VehicleRepository,
	companyRepo repository.CompanyRepository,
	eventBus events.EventBus,
) VehicleService {
	return &vehicleService{
		vehicleRepo: vehicleRepo,
		companyRepo: companyRepo,
		eventBus:    eventBus,
	}
}

func (s *vehicleService) Create(ctx context.Context, companyID int64, req *domain.CreateVehicleRequest) (*domain.Vehicle, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if company == nil {
		return nil, domain.AuthenticationError("session company no longer exists")
	}
	if !company.IsVerified {
		return nil, domain.AuthorizationError("company must be verified to list vehicles")
	}

	vehicle, err := s.vehicleRepo.Create(ctx, companyID, req)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ConflictError("vehicle number already listed by this company")
		}
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	event := events.VehicleCreatedEvent{
		VehicleID:     vehicle.ID,
		CompanyID:     vehicle.CompanyID,
		VehicleNumber: vehicle.VehicleNumber,
		Region:        vehicle.Region,
		MonthlyFee:    vehicle.MonthlyFee,
	}
	if err := s.eventBus.Publish(ctx, events.VehicleCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish vehicle event", "error", err, "vehicle_id", vehicle.ID)
	}

	return vehicle, nil
}

func (s *vehicleService) Update(ctx context.Context, id, companyID int64, req *domain.UpdateVehicleRequest) (*domain.Vehicle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleRepo.Update(ctx, id, companyID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	if vehicle == nil {
		// Either the vehicle does not exist or it belongs to another
		// company; owners only.
		return nil, domain.NotFoundError("vehicle not found")
	}

	event := events.VehicleUpdatedEvent{
		VehicleID: vehicle.ID,
		CompanyID: vehicle.CompanyID,
		Available: vehicle.IsAvailable,
	}
	if err := s.eventBus.Publish(ctx, events.VehicleUpdated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish vehicle event", "error", err, "vehicle_id", vehicle.ID)
	}

	return vehicle, nil
}

func (s *vehicleService) Delete(ctx context.Context, id, companyID int64) error {
	deleted, err := s.vehicleRepo.Delete(ctx, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if !deleted {
		return domain.NotFoundError("vehicle not found")
	}

	event := events.VehicleDeletedEvent{VehicleID: id, CompanyID: companyID}
	if err := s.eventBus.Publish(ctx, events.VehicleDeleted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish vehicle event", "error", err, "vehicle_id", id)
	}
	return nil
}

func (s *vehicleService) ListMine(ctx context.Context, companyID int64) ([]domain.Vehicle, error) {
	vehicles, err := s.vehicleRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}
