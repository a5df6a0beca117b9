package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types.
const (
	EventSignin           = "signin"
	EventSignup           = "signup"
	EventEmailVerified    = "email_verified"
	EventOTPIssued        = "otp_issued"
	EventPasswordResetReq = "password_reset_requested"
	EventPasswordReset    = "password_reset"
	EventOAuthSignin      = "oauth_signin"
	EventRefresh          = "token_refresh"
	EventLogout           = "logout"
	EventAccountBlocked   = "account_blocked"
	EventAccountUnblocked = "account_unblocked"
	EventHostSubmitted    = "host_verification_submitted"
	EventHostApproved     = "host_verification_approved"
	EventHostRejected     = "host_verification_rejected"
)

// AuditEvent is a security-relevant action. Email is masked before it is written.
type AuditEvent struct {
	EventType     string
	UserID        string
	ActorID       string
	Email         string
	Role          string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditSink persists audit events alongside the structured log.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent, at time.Time) error
}

type AuditLogger struct {
	logger *slog.Logger
	sink   AuditSink
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger, now: time.Now}
}

// WithSink returns a copy of al that also writes every event to sink.
func (al *AuditLogger) WithSink(sink AuditSink) *AuditLogger {
	cp := *al
	cp.sink = sink
	return &cp
}

// Log writes event at info level on success and warn level on failure.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	at := al.now().UTC()
	if event.Email != "" {
		event.Email = SanitizedEmail(event.Email)
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", at.Format(time.RFC3339)),
	}

	optional := []struct{ key, value string }{
		{"user_id", event.UserID},
		{"actor_id", event.ActorID},
		{"role", event.Role},
		{"ip_address", event.IPAddress},
		{"failure_reason", event.FailureReason},
	}
	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, slog.String(o.key, o.value))
		}
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", event.Email))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)

	if al.sink == nil {
		return
	}
	if err := al.sink.Record(ctx, event, at); err != nil {
		al.logger.WarnContext(ctx, "failed to persist audit event",
			slog.String("event_type", event.EventType), slog.Any("error", err))
	}
}
