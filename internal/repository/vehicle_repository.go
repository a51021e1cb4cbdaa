package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vnlease/vnlease-api/internal/domain"
)

type VehicleRepository interface {
	Create(ctx context.Context, companyID int64, req *domain.CreateVehicleRequest) (*domain.Vehicle, error)
	FindByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	FindSummaryByID(ctx context.Context, id int64) (*domain.VehicleSummary, error)
	ListAvailable(ctx context.Context, filter domain.VehicleFilter, limit, offset int) ([]domain.VehicleSummary, error)
	ListByCompany(ctx context.Context, companyID int64) ([]domain.Vehicle, error)
	Update(ctx context.Context, id, companyID int64, req *domain.UpdateVehicleRequest) (*domain.Vehicle, error)
	Delete(ctx context.Context, id, companyID int64) (bool, error)
	IncrementViewCount(ctx context.Context, id int64) error
}

type vehicleRepository struct {
	pool *pgxpool.Pool
}

func NewVehicleRepository(pool *pgxpool.Pool) VehicleRepository {
	return &vehicleRepository{pool: pool}
}

const vehicleCols = `id, company_id, vehicle_number, vehicle_type, tonnage, year_model,
region, insurance_rate, monthly_fee, description, is_available, view_count, created_at, updated_at`

// summaryCols joins the company display name but never its phone columns.
const summaryCols = `v.id, c.company_name, v.vehicle_number, v.vehicle_type, v.tonnage, v.year_model,
v.region, v.insurance_rate, v.monthly_fee, v.description, v.is_available, v.view_count, v.created_at`

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID, &v.CompanyID, &v.VehicleNumber, &v.VehicleType, &v.Tonnage, &v.YearModel,
		&v.Region, &v.InsuranceRate, &v.MonthlyFee, &v.Description, &v.IsAvailable,
		&v.ViewCount, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepository) Create(ctx context.Context, companyID int64, req *domain.CreateVehicleRequest) (*domain.Vehicle, error) {
	const q = `
		INSERT INTO vehicles (company_id, vehicle_number, vehicle_type, tonnage, year_model,
			region, insurance_rate, monthly_fee, description, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)
		RETURNING ` + vehicleCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanVehicle(r.pool.QueryRow(ctx, q,
		companyID, req.VehicleNumber, req.VehicleType, req.Tonnage, req.YearModel,
		req.Region, req.InsuranceRate, req.MonthlyFee, req.Description,
	))
}

func (r *vehicleRepository) FindByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	const q = `SELECT ` + vehicleCols + ` FROM vehicles WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanVehicle(r.pool.QueryRow(ctx, q, id))
}

func (r *vehicleRepository) FindSummaryByID(ctx context.Context, id int64) (*domain.VehicleSummary, error) {
	const q = `
		SELECT ` + summaryCols + `
		FROM vehicles v
		JOIN companies c ON c.id = v.company_id
		WHERE v.id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.VehicleSummary
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.CompanyName, &s.VehicleNumber, &s.VehicleType, &s.Tonnage, &s.YearModel,
		&s.Region, &s.InsuranceRate, &s.MonthlyFee, &s.Description, &s.IsAvailable,
		&s.ViewCount, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *vehicleRepository) ListAvailable(ctx context.Context, filter domain.VehicleFilter, limit, offset int) ([]domain.VehicleSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var (
		where = []string{"v.is_available = true"}
		args  []any
	)

	if filter.Region != "" {
		args = append(args, filter.Region)
		where = append(where, fmt.Sprintf("v.region = $%d", len(args)))
	}
	if filter.VehicleType != "" {
		args = append(args, filter.VehicleType)
		where = append(where, fmt.Sprintf("v.vehicle_type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(v.vehicle_number ILIKE $%d OR v.description ILIKE $%d)", n, n))
	}
	if filter.MaxFee != nil {
		args = append(args, *filter.MaxFee)
		where = append(where, fmt.Sprintf("v.monthly_fee <= $%d", len(args)))
	}

	args = append(args, limit, offset)
	q := `
		SELECT ` + summaryCols + `
		FROM vehicles v
		JOIN companies c ON c.id = v.company_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY v.created_at DESC
		LIMIT $` + fmt.Sprint(len(args)-1) + ` OFFSET $` + fmt.Sprint(len(args))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.VehicleSummary
	for rows.Next() {
		var s domain.VehicleSummary
		if err := rows.Scan(
			&s.ID, &s.CompanyName, &s.VehicleNumber, &s.VehicleType, &s.Tonnage, &s.YearModel,
			&s.Region, &s.InsuranceRate, &s.MonthlyFee, &s.Description, &s.IsAvailable,
			&s.ViewCount, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *vehicleRepository) ListByCompany(ctx context.Context, companyID int64) ([]domain.Vehicle, error) {
	const q = `SELECT ` + vehicleCols + ` FROM vehicles WHERE company_id = $1 ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(
			&v.ID, &v.CompanyID, &v.VehicleNumber, &v.VehicleType, &v.Tonnage, &v.YearModel,
			&v.Region, &v.InsuranceRate, &v.MonthlyFee, &v.Description, &v.IsAvailable,
			&v.ViewCount, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

func (r *vehicleRepository) Update(ctx context.Context, id, companyID int64, req *domain.UpdateVehicleRequest) (*domain.Vehicle, error) {
	const q = `
		UPDATE vehicles
		SET
			vehicle_type = COALESCE($3, vehicle_type),
			tonnage = COALESCE($4, tonnage),
			year_model = COALESCE($5, year_model),
			region = COALESCE($6, region),
			insurance_rate = COALESCE($7, insurance_rate),
			monthly_fee = COALESCE($8, monthly_fee),
			description = COALESCE($9, description),
			is_available = COALESCE($10, is_available),
			updated_at = now()
		WHERE id = $1 AND company_id = $2
		RETURNING ` + vehicleCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanVehicle(r.pool.QueryRow(ctx, q, id, companyID,
		req.VehicleType, req.Tonnage, req.YearModel, req.Region,
		req.InsuranceRate, req.MonthlyFee, req.Description, req.IsAvailable,
	))
}

func (r *vehicleRepository) Delete(ctx context.Context, id, companyID int64) (bool, error) {
	const q = `DELETE FROM vehicles WHERE id = $1 AND company_id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, companyID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *vehicleRepository) IncrementViewCount(ctx context.Context, id int64) error {
	const q = `UPDATE vehicles SET view_count = view_count + 1 WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}
