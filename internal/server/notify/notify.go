// Package notify delivers outbound account notifications (welcome mail,
// one-time codes, lock and role changes). Delivery is fire-and-forget:
// callers never wait for it and never see its failures.
package notify

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
)

// Kind names a notification template.
type Kind string

const (
	KindWelcome         Kind = "WELCOME"
	KindOneTimeCode     Kind = "ONE_TIME_CODE"
	KindAccountLocked   Kind = "ACCOUNT_LOCKED"
	KindAccountUnlocked Kind = "ACCOUNT_UNLOCKED"
	KindRoleChanged     Kind = "ROLE_CHANGED"
)

// Message is the envelope handed to a Publisher. The mail worker renders
// it using Kind and Data.
type Message struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	To        string            `json:"to"`
	Name      string            `json:"name,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Publisher hands a message to the delivery system.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Notifier is what services use. Methods return immediately.
type Notifier interface {
	Welcome(ctx context.Context, email, name string)
	OneTimeCode(ctx context.Context, email, code string, purpose models.Purpose)
	AccountLocked(ctx context.Context, email, name string)
	AccountUnlocked(ctx context.Context, email, name string)
	RoleChanged(ctx context.Context, email, name string, oldRole, newRole models.Role)
}
