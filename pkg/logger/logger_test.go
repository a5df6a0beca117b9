package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "g****@*******.com", SanitizedEmail("guest@example.com"))
	assert.Equal(t, "a@****.**.uk", SanitizedEmail("a@mail.co.uk"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("no-at-sign"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("@example.com"))
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, redacted, RedactedAttr("code", "123456", "production").Value.String())
	assert.Equal(t, "123456", RedactedAttr("code", "123456", "development").Value.String())
}

func TestRedactQuery(t *testing.T) {
	out := RedactQuery("token=123456___2024&page=2&Email=a@b.c")
	values, err := url.ParseQuery(out)
	require.NoError(t, err)
	assert.Equal(t, redacted, values.Get("token"))
	assert.Equal(t, redacted, values.Get("Email"))
	assert.Equal(t, "2", values.Get("page"))

	assert.Equal(t, "", RedactQuery(""))
	assert.Equal(t, redacted, RedactQuery("%zz"))
}

func TestAuditLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.Log(context.Background(), AuditEvent{
		EventType:     EventSignin,
		Email:         "guest@example.com",
		Role:          "user",
		Success:       false,
		FailureReason: "invalid_credentials",
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, EventSignin, entry["event_type"])
	assert.Equal(t, "g****@*******.com", entry["email"])
	assert.Equal(t, "invalid_credentials", entry["failure_reason"])
	assert.NotContains(t, entry, "user_id")
}

type recordingSink struct {
	events []AuditEvent
	err    error
}

func (s *recordingSink) Record(ctx context.Context, event AuditEvent, at time.Time) error {
	s.events = append(s.events, event)
	return s.err
}

func TestAuditLogger_WithSink(t *testing.T) {
	var buf bytes.Buffer
	base := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	sink := &recordingSink{}
	al := base.WithSink(sink)

	al.Log(context.Background(), AuditEvent{EventType: EventLogout, UserID: "u1", Email: "guest@example.com", Success: true})
	require.Len(t, sink.events, 1)
	assert.Equal(t, "g****@*******.com", sink.events[0].Email, "sink must never see the raw address")

	base.Log(context.Background(), AuditEvent{EventType: EventLogout, Success: true})
	assert.Len(t, sink.events, 1, "WithSink must not mutate the receiver")

	buf.Reset()
	sink.err = errors.New("db down")
	al.Log(context.Background(), AuditEvent{EventType: EventRefresh, Success: true})
	assert.Contains(t, buf.String(), "failed to persist audit event")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
