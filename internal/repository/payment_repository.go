package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vnlease/vnlease-api/internal/domain"
)

type PaymentRepository interface {
	CreatePending(ctx context.Context, userID, vehicleID, amount int64, gatewayRef *string) (*domain.Payment, error)
	MarkCompleted(ctx context.Context, id int64, method string) (*domain.Payment, error)
	MarkFailed(ctx context.Context, id int64) error
	// SetGatewayRef records the processor's reference on a pending row so a
	// later callback can resolve it.
	SetGatewayRef(ctx context.Context, id int64, ref string) error
	FindByGatewayRef(ctx context.Context, ref string) (*domain.Payment, error)
	HasCompleted(ctx context.Context, userID, vehicleID int64) (bool, error)
	LatestFor(ctx context.Context, userID, vehicleID int64) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.PaymentWithVehicle, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentCols = `id, user_id, vehicle_id, amount, status, payment_method, gateway_ref, paid_at, created_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.VehicleID, &p.Amount, &p.Status,
		&p.PaymentMethod, &p.GatewayRef, &p.PaidAt, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) CreatePending(ctx context.Context, userID, vehicleID, amount int64, gatewayRef *string) (*domain.Payment, error) {
	const q = `
		INSERT INTO payments (user_id, vehicle_id, amount, status, gateway_ref)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING ` + paymentCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q, userID, vehicleID, amount, gatewayRef))
}

// MarkCompleted relies on the partial unique index on
// (user_id, vehicle_id) WHERE status = 'completed' to reject a concurrent
// duplicate grant; callers map the constraint violation to a conflict.
func (r *paymentRepository) MarkCompleted(ctx context.Context, id int64, method string) (*domain.Payment, error) {
	const q = `
		UPDATE payments
		SET status = 'completed', payment_method = $2, paid_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q, id, method))
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id int64) error {
	const q = `UPDATE payments SET status = 'failed' WHERE id = $1 AND status = 'pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *paymentRepository) SetGatewayRef(ctx context.Context, id int64, ref string) error {
	const q = `UPDATE payments SET gateway_ref = $2 WHERE id = $1 AND status = 'pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, ref)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *paymentRepository) FindByGatewayRef(ctx context.Context, ref string) (*domain.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE gateway_ref = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q, ref))
}

func (r *paymentRepository) HasCompleted(ctx context.Context, userID, vehicleID int64) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE user_id = $1 AND vehicle_id = $2 AND status = 'completed')`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, userID, vehicleID).Scan(&exists)
	return exists, err
}

func (r *paymentRepository) LatestFor(ctx context.Context, userID, vehicleID int64) (*domain.Payment, error) {
	const q = `
		SELECT ` + paymentCols + `
		FROM payments
		WHERE user_id = $1 AND vehicle_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPayment(r.pool.QueryRow(ctx, q, userID, vehicleID))
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.PaymentWithVehicle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT p.id, p.user_id, p.vehicle_id, p.amount, p.status, p.payment_method,
			p.gateway_ref, p.paid_at, p.created_at,
			v.vehicle_number, v.vehicle_type, v.region, v.monthly_fee, c.company_name
		FROM payments p
		JOIN vehicles v ON v.id = p.vehicle_id
		JOIN companies c ON c.id = v.company_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.PaymentWithVehicle
	for rows.Next() {
		var p domain.PaymentWithVehicle
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.VehicleID, &p.Amount, &p.Status, &p.PaymentMethod,
			&p.GatewayRef, &p.PaidAt, &p.CreatedAt,
			&p.VehicleNumber, &p.VehicleType, &p.Region, &p.MonthlyFee, &p.CompanyName,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}
