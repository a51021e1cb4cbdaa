package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vnlease/vnlease-api/internal/domain"
)

type CompanyRepository interface {
	Create(ctx context.Context, req *domain.RegisterCompanyRequest, passwordHash string) (*domain.Company, error)
	FindByID(ctx context.Context, id int64) (*domain.Company, error)
	FindByBusinessNumber(ctx context.Context, businessNumber string) (*domain.Company, error)
	// ListByPhone returns every company registered under a phone number,
	// oldest first. Row order matters: the first registration under a phone
	// holds the password of record for the whole sibling group.
	ListByPhone(ctx context.Context, phone string) ([]domain.Company, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Company, error)
	MarkVerified(ctx context.Context, businessNumber string) (bool, error)
	UpdateContactPhone(ctx context.Context, id int64, contactPhone *string) error
}

type companyRepository struct {
	pool *pgxpool.Pool
}

func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

const companyCols = `id, business_number, company_name, representative, phone, contact_phone,
email, password_hash, is_verified, verified_at, created_at`

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var c domain.Company
	err := row.Scan(
		&c.ID, &c.BusinessNumber, &c.CompanyName, &c.Representative, &c.Phone, &c.ContactPhone,
		&c.Email, &c.PasswordHash, &c.IsVerified, &c.VerifiedAt, &c.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *companyRepository) Create(ctx context.Context, req *domain.RegisterCompanyRequest, passwordHash string) (*domain.Company, error) {
	const q = `
		INSERT INTO companies (business_number, company_name, representative, phone, contact_phone,
			email, password_hash, is_verified, verified_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, true, now())
		RETURNING ` + companyCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanCompany(r.pool.QueryRow(ctx, q,
		req.BusinessNumber, req.CompanyName, req.Representative, req.Phone, req.ContactPhone,
		req.Email, passwordHash,
	))
}

func (r *companyRepository) FindByID(ctx context.Context, id int64) (*domain.Company, error) {
	const q = `SELECT ` + companyCols + ` FROM companies WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanCompany(r.pool.QueryRow(ctx, q, id))
}

func (r *companyRepository) FindByBusinessNumber(ctx context.Context, businessNumber string) (*domain.Company, error) {
	const q = `SELECT ` + companyCols + ` FROM companies WHERE business_number = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanCompany(r.pool.QueryRow(ctx, q, businessNumber))
}

func (r *companyRepository) ListByPhone(ctx context.Context, phone string) ([]domain.Company, error) {
	const q = `
		SELECT ` + companyCols + `
		FROM companies
		WHERE regexp_replace(phone, '\D', '', 'g') = regexp_replace($1, '\D', '', 'g')
		ORDER BY created_at ASC, id ASC`

	return r.list(ctx, q, phone)
}

func (r *companyRepository) ListByEmail(ctx context.Context, email string) ([]domain.Company, error) {
	const q = `
		SELECT ` + companyCols + `
		FROM companies
		WHERE lower(email) = lower($1)
		ORDER BY created_at ASC, id ASC`

	return r.list(ctx, q, email)
}

func (r *companyRepository) list(ctx context.Context, q string, arg any) ([]domain.Company, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(
			&c.ID, &c.BusinessNumber, &c.CompanyName, &c.Representative, &c.Phone, &c.ContactPhone,
			&c.Email, &c.PasswordHash, &c.IsVerified, &c.VerifiedAt, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}

	return companies, rows.Err()
}

func (r *companyRepository) MarkVerified(ctx context.Context, businessNumber string) (bool, error) {
	const q = `
		UPDATE companies
		SET is_verified = true, verified_at = now()
		WHERE business_number = $1 AND NOT is_verified`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, businessNumber)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *companyRepository) UpdateContactPhone(ctx context.Context, id int64, contactPhone *string) error {
	const q = `UPDATE companies SET contact_phone = $2 WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, contactPhone)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
