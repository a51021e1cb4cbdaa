package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// MaxResetCodeAttempts bounds wrong-code guesses per issued reset record.
const MaxResetCodeAttempts = 5

type ResetRepository interface {
	// Create stores a new reset record and invalidates every prior unused
	// record for the same user.
	Create(ctx context.Context, userID int64, token, codeHash string, expiresAt time.Time) error
	// ConsumeAndUpdatePassword atomically marks the token used and swaps the
	// user's password hash. Returns the user id, or 0 when the token is
	// unknown, already used, or expired.
	ConsumeAndUpdatePassword(ctx context.Context, token, newPasswordHash string) (int64, error)
	// CheckCode verifies the short emailed code for a user's latest active
	// reset record, counting failed attempts.
	CheckCode(ctx context.Context, email, code string) (string, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type resetRepository struct {
	pool *pgxpool.Pool
}

func NewResetRepository(pool *pgxpool.Pool) ResetRepository {
	return &resetRepository{pool: pool}
}

func (r *resetRepository) Create(ctx context.Context, userID int64, token, codeHash string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE password_reset_tokens SET used_at = now() WHERE user_id = $1 AND used_at IS NULL`,
		userID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO password_reset_tokens (user_id, token, code_hash, expires_at) VALUES ($1, $2, $3, $4)`,
		userID, token, codeHash, expiresAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *resetRepository) ConsumeAndUpdatePassword(ctx context.Context, token, newPasswordHash string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const consume = `
		UPDATE password_reset_tokens
		SET used_at = now()
		WHERE token = $1
		  AND used_at IS NULL
		  AND expires_at > now()
		RETURNING user_id`

	var userID int64
	err = tx.QueryRow(ctx, consume, token).Scan(&userID)
	if err == pgx.ErrNoRows {
		return 0, nil // invalid, used, or expired
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE individuals SET password_hash = $2 WHERE id = $1`,
		userID, newPasswordHash,
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return userID, nil
}

func (r *resetRepository) CheckCode(ctx context.Context, email, code string) (string, error) {
	const q = `
		SELECT t.id, t.token, t.code_hash, t.expires_at, t.used_at, t.attempts
		FROM password_reset_tokens t
		JOIN individuals u ON u.id = t.user_id
		WHERE lower(u.email) = lower($1)
		ORDER BY t.id DESC
		LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		id       int64
		token    string
		hash     string
		expires  time.Time
		used     *time.Time
		attempts int
	)

	err := r.pool.QueryRow(ctx, q, email).Scan(&id, &token, &hash, &expires, &used, &attempts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", err
	}

	if used != nil || time.Now().After(expires) || attempts >= MaxResetCodeAttempts {
		return "", nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		_, _ = r.pool.Exec(ctx, `UPDATE password_reset_tokens SET attempts = attempts + 1 WHERE id = $1`, id)
		return "", nil
	}

	return token, nil
}

func (r *resetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `
		DELETE FROM password_reset_tokens
		WHERE (used_at IS NOT NULL AND used_at < now() - interval '30 days')
		   OR (used_at IS NULL AND expires_at < now() - interval '7 days')`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
