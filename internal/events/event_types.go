package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/bem-health/admin-api/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
	EventLoginThrottled     EventType = "login_throttled"
	EventPasswordChanged    EventType = "password_changed"
	EventAdminUserCreated   EventType = "admin_user_created"
	EventAdminUserUpdated   EventType = "admin_user_updated"
	EventAdminUserDisabled  EventType = "admin_user_disabled"
	EventAdminPasswordReset EventType = "admin_password_reset"
	EventResourceCreated    EventType = "resource_created"
	EventResourceUpdated    EventType = "resource_updated"
	EventResourceDeleted    EventType = "resource_deleted"
)

// Event represents an auditable action.
type Event struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	Actor     *domain.Identity `json:"actor,omitempty"`
	Target    string           `json:"target,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   any              `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(typ EventType, actor *domain.Identity, target string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Actor:     actor,
		Target:    target,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginPayload describes a login attempt. The username is the one the
// caller supplied, which may not exist.
type LoginPayload struct {
	Username string `json:"username"`
	RemoteIP string `json:"remote_ip,omitempty"`
}

// ResourcePayload names the entity a resource event touched.
type ResourcePayload struct {
	Resource string   `json:"resource"`
	Fields   []string `json:"fields,omitempty"`
}
