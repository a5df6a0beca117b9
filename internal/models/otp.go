package models

import "time"

// OneTimeCode is the single active code held for an email address.
// Issuing a new code for the same address replaces the previous one.
type OneTimeCode struct {
	ID        string
	Email     string
	Code      string
	Attempts  int
	CreatedAt time.Time
}

// IsExpired reports whether the code is older than window at now.
func (c *OneTimeCode) IsExpired(now time.Time, window time.Duration) bool {
	return now.Sub(c.CreatedAt) > window
}
