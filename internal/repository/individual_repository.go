package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vnlease/vnlease-api/internal/domain"
)

type IndividualRepository interface {
	Create(ctx context.Context, req *domain.RegisterIndividualRequest, passwordHash string, preVerified bool) (*domain.Individual, error)
	FindByID(ctx context.Context, id int64) (*domain.Individual, error)
	FindByEmail(ctx context.Context, email string) (*domain.Individual, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Individual, error)
	ExistsPhoneOrEmail(ctx context.Context, phone, email string, excludeID int64) (phoneTaken, emailTaken bool, err error)
	Update(ctx context.Context, id int64, name, phone, email *string) (*domain.Individual, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64) error
}

type individualRepository struct {
	pool *pgxpool.Pool
}

func NewIndividualRepository(pool *pgxpool.Pool) IndividualRepository {
	return &individualRepository{pool: pool}
}

const individualCols = `id, name, phone, email, password_hash, is_verified, verified_at, last_login, created_at`

func scanIndividual(row pgx.Row) (*domain.Individual, error) {
	var u domain.Individual
	err := row.Scan(
		&u.ID, &u.Name, &u.Phone, &u.Email, &u.PasswordHash,
		&u.IsVerified, &u.VerifiedAt, &u.LastLogin, &u.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *individualRepository) Create(ctx context.Context, req *domain.RegisterIndividualRequest, passwordHash string, preVerified bool) (*domain.Individual, error) {
	const q = `
		INSERT INTO individuals (name, phone, email, password_hash, is_verified, verified_at)
		VALUES ($1, $2, $3, $4, $5, CASE WHEN $5 THEN now() END)
		RETURNING ` + individualCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanIndividual(r.pool.QueryRow(ctx, q, req.Name, req.Phone, req.Email, passwordHash, preVerified))
}

func (r *individualRepository) FindByID(ctx context.Context, id int64) (*domain.Individual, error) {
	const q = `SELECT ` + individualCols + ` FROM individuals WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanIndividual(r.pool.QueryRow(ctx, q, id))
}

func (r *individualRepository) FindByEmail(ctx context.Context, email string) (*domain.Individual, error) {
	const q = `SELECT ` + individualCols + ` FROM individuals WHERE lower(email) = lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanIndividual(r.pool.QueryRow(ctx, q, email))
}

// FindByPhone matches on digits only, so "010-1234-5678" resolves the same
// row as "01012345678" whichever form was stored.
func (r *individualRepository) FindByPhone(ctx context.Context, phone string) (*domain.Individual, error) {
	const q = `
		SELECT ` + individualCols + `
		FROM individuals
		WHERE regexp_replace(phone, '\D', '', 'g') = regexp_replace($1, '\D', '', 'g')
		LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanIndividual(r.pool.QueryRow(ctx, q, phone))
}

func (r *individualRepository) ExistsPhoneOrEmail(ctx context.Context, phone, email string, excludeID int64) (bool, bool, error) {
	const q = `
		SELECT
			EXISTS(SELECT 1 FROM individuals
				WHERE regexp_replace(phone, '\D', '', 'g') = regexp_replace($1, '\D', '', 'g') AND id <> $3),
			EXISTS(SELECT 1 FROM individuals
				WHERE lower(email) = lower($2) AND id <> $3)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var phoneTaken, emailTaken bool
	err := r.pool.QueryRow(ctx, q, phone, email, excludeID).Scan(&phoneTaken, &emailTaken)
	return phoneTaken, emailTaken, err
}

func (r *individualRepository) Update(ctx context.Context, id int64, name, phone, email *string) (*domain.Individual, error) {
	const q = `
		UPDATE individuals
		SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			email = COALESCE($4, email)
		WHERE id = $1
		RETURNING ` + individualCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanIndividual(r.pool.QueryRow(ctx, q, id, name, phone, email))
}

func (r *individualRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE individuals SET password_hash = $2 WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *individualRepository) TouchLastLogin(ctx context.Context, id int64) error {
	const q = `UPDATE individuals SET last_login = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}
