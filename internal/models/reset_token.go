package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ResetTokenSeparator joins the one-time code and its issue timestamp in a reset link.
const ResetTokenSeparator = "___"

const resetTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ResetToken is the opaque token carried by a password reset link.
type ResetToken struct {
	Code     string
	IssuedAt time.Time
}

// Encode renders the token as it appears in the link query string.
func (t ResetToken) Encode() string {
	return t.Code + ResetTokenSeparator + url.QueryEscape(t.IssuedAt.UTC().Format(resetTimestampLayout))
}

// ParseResetToken accepts either the raw query value or its decoded form.
// A token without a separator is treated as a bare code with no issue time.
func ParseResetToken(raw string) (ResetToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ResetToken{}, NewValidationError("token", "is required")
	}

	code, stamp, found := strings.Cut(raw, ResetTokenSeparator)
	if !found {
		return ResetToken{Code: raw}, nil
	}
	if code == "" {
		return ResetToken{}, NewValidationError("token", "is malformed")
	}

	if strings.Contains(stamp, "%") {
		decoded, err := url.QueryUnescape(stamp)
		if err != nil {
			return ResetToken{}, NewValidationError("token", "is malformed")
		}
		stamp = decoded
	}

	issuedAt, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return ResetToken{}, NewValidationError("token", fmt.Sprintf("has an invalid timestamp %q", stamp))
	}

	return ResetToken{Code: code, IssuedAt: issuedAt}, nil
}
