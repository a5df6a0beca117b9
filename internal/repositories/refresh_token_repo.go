package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/stayhub/internal/database"
	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RefreshTokenRepository keeps one refresh-token state row per user.
type RefreshTokenRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewRefreshTokenRepository(db *database.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: db.Pool, now: time.Now}
}

// Save records state as the only refresh token honored for its user.
func (r *RefreshTokenRepository) Save(ctx context.Context, state *models.RefreshTokenState) error {
	query := `
		INSERT INTO refresh_token_states (user_id, token_id, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
			SET token_id = EXCLUDED.token_id, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at
	`
	state.UpdatedAt = r.now()
	if _, err := r.pool.Exec(ctx, query, state.UserID, state.TokenID, state.ExpiresAt, state.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save refresh token state: %w", database.MapPostgresError(err))
	}
	return nil
}

// Rotate replaces the user's state with next only while consumedTokenID is still the
// honored token. It returns ErrUnauthorized when the state was rotated, invalidated or never existed.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, consumedTokenID string, next *models.RefreshTokenState) error {
	query := `
		UPDATE refresh_token_states
		SET token_id = $3, expires_at = $4, updated_at = $5
		WHERE user_id = $1 AND token_id = $2
	`
	next.UpdatedAt = r.now()
	tag, err := r.pool.Exec(ctx, query, next.UserID, consumedTokenID, next.TokenID, next.ExpiresAt, next.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token state: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUnauthorized
	}
	return nil
}

func (r *RefreshTokenRepository) GetByUserID(ctx context.Context, userID string) (*models.RefreshTokenState, error) {
	query := `SELECT user_id, token_id, expires_at, updated_at FROM refresh_token_states WHERE user_id = $1`

	var state models.RefreshTokenState
	err := r.pool.QueryRow(ctx, query, userID).Scan(&state.UserID, &state.TokenID, &state.ExpiresAt, &state.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &state, nil
}

// Invalidate removes the user's refresh state. It is idempotent.
func (r *RefreshTokenRepository) Invalidate(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM refresh_token_states WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to invalidate refresh token state: %w", database.MapPostgresError(err))
	}
	return nil
}

// DeleteExpired sweeps states whose refresh token can no longer be presented.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_token_states WHERE expires_at < $1`, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh token states: %w", database.MapPostgresError(err))
	}
	return tag.RowsAffected(), nil
}
