package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/stayhub/internal/database"
	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const userColumns = `id, email, name, password_hash, role, is_blocked, verification_state,
	email_verified, external_identity_linked, password_changed_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash *string

	err := scanner.Scan(
		&user.ID, &user.Email, &user.Name, &passwordHash, &user.Role, &user.IsBlocked,
		&user.VerificationState, &user.EmailVerified, &user.ExternalIdentityLinked,
		&user.PasswordChangedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUserRow(r.pool.QueryRow(ctx, query, models.NormalizeEmail(email)))
}

// Create inserts user and returns the stored row. A duplicate email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := r.now()
	if user.VerificationState == "" {
		user.VerificationState = models.DefaultVerificationState(user.Role)
	}

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, role, is_blocked, verification_state,
			email_verified, external_identity_linked, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), models.NormalizeEmail(user.Email), user.Name, passwordHash, user.Role,
		user.IsBlocked, user.VerificationState, user.EmailVerified, user.ExternalIdentityLinked,
		user.PasswordChangedAt, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	query := `UPDATE users SET password_hash = $2, password_changed_at = $3, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, query, id, passwordHash, changedAt)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, r.now())
}

// LinkExternalIdentity flags the account as reachable through OAuth. The provider
// has already proven ownership of the address, so the email is marked verified.
func (r *UserRepository) LinkExternalIdentity(ctx context.Context, id string) error {
	query := `UPDATE users SET external_identity_linked = TRUE, email_verified = TRUE, updated_at = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, r.now())
}

func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	query := `UPDATE users SET is_blocked = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, query, id, blocked, r.now())
}

// TransitionVerificationState moves a host to "to" only while its current state is one
// of from. It returns ErrNotFound when no row matched, which covers a concurrent transition.
func (r *UserRepository) TransitionVerificationState(ctx context.Context, id string, from []models.VerificationState, to models.VerificationState) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	query := `
		UPDATE users SET verification_state = $2, updated_at = $3
		WHERE id = $1 AND role = 'host' AND verification_state = ANY($4::text[])
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, id, to, r.now(), pq.Array(states)))
}

func (r *UserRepository) ListByVerificationStates(ctx context.Context, states []models.VerificationState, limit, offset int) ([]*models.User, error) {
	values := make([]string, len(states))
	for i, s := range states {
		values[i] = string(s)
	}

	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE role = 'host' AND verification_state = ANY($1::text[])
		ORDER BY updated_at ASC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, pq.Array(values), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query hosts: %w", err)
	}
	return scanUserRows(rows)
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	if id, ok := args[0].(string); ok {
		if _, err := uuid.Parse(id); err != nil {
			return models.ErrNotFound
		}
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
