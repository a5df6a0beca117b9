package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/stayhub/internal/database"
	"github.com/BradenHooton/stayhub/internal/models"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditColumns = `id, event_type, user_id, actor_id, email, role, ip_address,
	success, failure_reason, metadata, created_at`

// AuditLogRepository stores the audit trail written by pkglogger.AuditLogger.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

func scanAuditRow(row rowScanner) (*models.AuditRecord, error) {
	var rec models.AuditRecord
	err := row.Scan(
		&rec.ID, &rec.EventType, &rec.UserID, &rec.ActorID, &rec.Email, &rec.Role,
		&rec.IPAddress, &rec.Success, &rec.FailureReason, &rec.Metadata, &rec.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &rec, nil
}

func scanAuditRows(rows pgx.Rows) ([]*models.AuditRecord, error) {
	defer rows.Close()

	records := make([]*models.AuditRecord, 0)
	for rows.Next() {
		rec, err := scanAuditRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit event rows: %w", err)
	}
	return records, nil
}

// Record implements pkglogger.AuditSink. IDs that are not UUIDs (an unknown
// account in a failed signin, for instance) are stored as NULL.
func (r *AuditLogRepository) Record(ctx context.Context, event pkglogger.AuditEvent, at time.Time) error {
	query := `
		INSERT INTO audit_events (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := r.pool.Exec(ctx, query,
		uuid.New().String(), event.EventType,
		uuidOrNil(event.UserID), uuidOrNil(event.ActorID),
		nullable(event.Email), nullable(event.Role), nullable(event.IPAddress),
		event.Success, nullable(event.FailureReason), metadata, at,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", database.MapPostgresError(err))
	}
	return nil
}

// ListByUserID returns events about userID, newest first.
func (r *AuditLogRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuditRecord, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []*models.AuditRecord{}, nil
	}
	query := `SELECT ` + auditColumns + ` FROM audit_events
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", database.MapPostgresError(err))
	}
	return scanAuditRows(rows)
}

// DeleteOlderThan removes events created before cutoff.
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", database.MapPostgresError(err))
	}
	return tag.RowsAffected(), nil
}

func uuidOrNil(id string) *string {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	return &id
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
