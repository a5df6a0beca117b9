package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/stayhub/internal/database"
	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OTPRepository stores at most one code per email. The UNIQUE(email) constraint
// and upsert make concurrent issues for the same address converge on one row.
type OTPRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewOTPRepository(db *database.DB) *OTPRepository {
	return &OTPRepository{pool: db.Pool, now: time.Now}
}

// Replace stores code for email, superseding any earlier code and resetting attempts.
func (r *OTPRepository) Replace(ctx context.Context, email, code string) (*models.OneTimeCode, error) {
	query := `
		INSERT INTO one_time_codes (id, email, code, attempts, created_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (email) DO UPDATE
			SET id = EXCLUDED.id, code = EXCLUDED.code, attempts = 0, created_at = EXCLUDED.created_at
		RETURNING id, email, code, attempts, created_at
	`

	var otp models.OneTimeCode
	err := r.pool.QueryRow(ctx, query, uuid.New().String(), models.NormalizeEmail(email), code, r.now()).
		Scan(&otp.ID, &otp.Email, &otp.Code, &otp.Attempts, &otp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store one-time code: %w", database.MapPostgresError(err))
	}
	return &otp, nil
}

func (r *OTPRepository) GetByEmail(ctx context.Context, email string) (*models.OneTimeCode, error) {
	query := `SELECT id, email, code, attempts, created_at FROM one_time_codes WHERE email = $1`

	var otp models.OneTimeCode
	err := r.pool.QueryRow(ctx, query, models.NormalizeEmail(email)).
		Scan(&otp.ID, &otp.Email, &otp.Code, &otp.Attempts, &otp.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &otp, nil
}

// IncrementAttempts bumps the failure count while it is below max and returns the
// new count, or -1 when the code was already at the limit or is gone.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id string, max int) (int, error) {
	query := `UPDATE one_time_codes SET attempts = attempts + 1 WHERE id = $1 AND attempts < $2 RETURNING attempts`

	var attempts int
	err := r.pool.QueryRow(ctx, query, id, max).Scan(&attempts)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrNotFound) {
			return -1, nil
		}
		return 0, fmt.Errorf("failed to increment attempts: %w", mapped)
	}
	return attempts, nil
}

// Delete removes the code with id. ErrNotFound means another caller consumed it first.
func (r *OTPRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM one_time_codes WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
