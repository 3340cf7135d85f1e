package auditlog

import (
	"time"

	"github.com/dalemusser/storefront/internal/app/store/audit"
)

// eventRow is one audit event with actor and user names resolved.
type eventRow struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	UserName      string            `json:"user_name,omitempty"`
	SubjectID     string            `json:"subject_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// validCategory reports whether c is empty or a known category.
func validCategory(c string) bool {
	if c == "" {
		return true
	}
	for _, known := range audit.Categories() {
		if c == known {
			return true
		}
	}
	return false
}
