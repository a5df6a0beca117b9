package models

import "time"

// AuditRecord is a persisted authentication or administration event.
// Email is stored masked.
type AuditRecord struct {
	ID            string            `json:"id"`
	EventType     string            `json:"event_type"`
	UserID        *string           `json:"user_id,omitempty"`
	ActorID       *string           `json:"actor_id,omitempty"`
	Email         *string           `json:"email,omitempty"`
	Role          *string           `json:"role,omitempty"`
	IPAddress     *string           `json:"ip_address,omitempty"`
	Success       bool              `json:"success"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
