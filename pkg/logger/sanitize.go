package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

// SanitizedEmail masks an address for logging, e.g. "g****@*******.com".
func SanitizedEmail(email string) string {
	username, domain, found := strings.Cut(email, "@")
	if !found || username == "" || domain == "" {
		return "[invalid-email]"
	}

	if len(username) > 1 {
		username = username[:1] + strings.Repeat("*", len(username)-1)
	}

	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return username + "@" + strings.Join(labels, ".")
}

// RedactedAttr hides value in production and keeps it elsewhere.
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, redacted)
	}
	return slog.String(key, value)
}

var sensitiveParams = []string{"password", "token", "otp", "code", "secret", "email", "state"}

// RedactQuery replaces the values of sensitive query parameters. Unparseable
// queries are redacted whole.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redacted
	}
	for key := range values {
		lower := strings.ToLower(key)
		for _, s := range sensitiveParams {
			if strings.Contains(lower, s) {
				values[key] = []string{redacted}
				break
			}
		}
	}
	return values.Encode()
}
