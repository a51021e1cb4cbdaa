package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vnlease/vnlease-api/internal/domain"
	"github.com/vnlease/vnlease-api/internal/payment"
	"github.com/vnlease/vnlease-api/internal/repository"
	"github.com/vnlease/vnlease-api/pkg/config"
	"github.com/vnlease/vnlease-api/pkg/events"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, userID, vehicleID int64) (*domain.Payment, error)
	GetStatus(ctx context.Context, userID, vehicleID int64) (*domain.PaymentStatusResponse, error)
	ListMine(ctx context.Context, userID int64, limit, offset int) ([]domain.PaymentWithVehicle, error)
	// CompleteFromGateway settles a pending payment when an asynchronous
	// gateway confirms (or rejects) its reference.
	CompleteFromGateway(ctx context.Context, gatewayRef string, succeeded bool) error
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	vehicleRepo repository.VehicleRepository
	gateway     payment.Gateway
	eventBus    events.EventBus
	config      *config.Config
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	vehicleRepo repository.VehicleRepository,
	gateway payment.Gateway,
	eventBus events.EventBus,
	config *config.Config,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		vehicleRepo: vehicleRepo,
		gateway:     gateway,
		eventBus:    eventBus,
		config:      config,
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, userID, vehicleID int64) (*domain.Payment, error) {
	vehicle, err := s.vehicleRepo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	if vehicle == nil {
		return nil, domain.NotFoundError("vehicle not found")
	}
	if !vehicle.IsAvailable {
		return nil, domain.InvalidStateError("vehicle is no longer available")
	}

	paid, err := s.paymentRepo.HasCompleted(ctx, userID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing payment: %w", err)
	}
	if paid {
		return nil, domain.ConflictError("contact already purchased for this vehicle")
	}

	pending, err := s.paymentRepo.CreatePending(ctx, userID, vehicleID, s.config.Payment.ContactAmount, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	result, err := s.gateway.Charge(ctx, pending)
	if err != nil {
		if ferr := s.paymentRepo.MarkFailed(ctx, pending.ID); ferr != nil {
			logger.ErrorContext(ctx, "Failed to mark payment failed", "error", ferr, "payment_id", pending.ID)
		}
		s.publishFailed(ctx, pending, "gateway charge failed")
		return nil, fmt.Errorf("charge failed: %w", err)
	}

	if !result.Completed {
		// Asynchronous gateway: persist the processor's reference so the
		// webhook can resolve the row, then leave it pending.
		if err := s.paymentRepo.SetGatewayRef(ctx, pending.ID, result.Reference); err != nil {
			return nil, fmt.Errorf("failed to store gateway reference: %w", err)
		}
		pending.GatewayRef = &result.Reference
		return pending, nil
	}

	completed, err := s.paymentRepo.MarkCompleted(ctx, pending.ID, result.Method)
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent purchase won the race; the grant already exists.
			return nil, domain.ConflictError("contact already purchased for this vehicle")
		}
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}
	if completed == nil {
		return nil, domain.InvalidStateError("payment is not pending")
	}

	s.publishCompleted(ctx, completed)
	return completed, nil
}

func (s *paymentService) GetStatus(ctx context.Context, userID, vehicleID int64) (*domain.PaymentStatusResponse, error) {
	paid, err := s.paymentRepo.HasCompleted(ctx, userID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment: %w", err)
	}

	latest, err := s.paymentRepo.LatestFor(ctx, userID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payment: %w", err)
	}

	return &domain.PaymentStatusResponse{
		HasPaid: paid,
		Latest:  latest,
	}, nil
}

func (s *paymentService) ListMine(ctx context.Context, userID int64, limit, offset int) ([]domain.PaymentWithVehicle, error) {
	payments, err := s.paymentRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *paymentService) CompleteFromGateway(ctx context.Context, gatewayRef string, succeeded bool) error {
	p, err := s.paymentRepo.FindByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return fmt.Errorf("failed to find payment by reference: %w", err)
	}
	if p == nil {
		return domain.NotFoundError("no payment for gateway reference")
	}
	if p.Status != domain.PaymentPending {
		return nil // already settled, callback retry
	}

	if !succeeded {
		if err := s.paymentRepo.MarkFailed(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		s.publishFailed(ctx, p, "gateway reported failure")
		return nil
	}

	completed, err := s.paymentRepo.MarkCompleted(ctx, p.ID, "card")
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to complete payment: %w", err)
	}
	if completed != nil {
		s.publishCompleted(ctx, completed)
	}
	return nil
}

func (s *paymentService) publishCompleted(ctx context.Context, p *domain.Payment) {
	event := events.PaymentCompletedEvent{
		PaymentID: p.ID,
		UserID:    p.UserID,
		VehicleID: p.VehicleID,
		Amount:    p.Amount,
	}
	if p.PaidAt != nil {
		event.PaidAt = *p.PaidAt
	}
	if err := s.eventBus.Publish(ctx, events.PaymentCompleted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish payment event", "error", err, "payment_id", p.ID)
	}
}

func (s *paymentService) publishFailed(ctx context.Context, p *domain.Payment, reason string) {
	event := events.PaymentFailedEvent{
		PaymentID: p.ID,
		UserID:    p.UserID,
		VehicleID: p.VehicleID,
		Reason:    reason,
	}
	if err := s.eventBus.Publish(ctx, events.PaymentFailed, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish payment event", "error", err, "payment_id", p.ID)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
