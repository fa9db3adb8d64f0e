// Package sessionstore holds the gateway's session ownership records.
//
// The browser pool core treats sessionId as an opaque ownership tag
// (spec §6, "Consumed: Session Store") — this package is the external
// collaborator it's consumed against, not part of the pool itself.
package sessionstore

import (
	"context"
	"fmt"
	"time"

	"browsergate/errors"
)

// Record is a session's identity and lifetime as seen by the gateway.
// The pool never reads these fields directly; protocol adapters do,
// to authorize requests before calling into the pool with sessionId.
type Record struct {
	SessionID      string    `json:"sessionId" bson:"session_id"`
	UserID         string    `json:"userId" bson:"user_id"`
	Roles          []string  `json:"roles" bson:"roles"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	ExpiresAt      time.Time `json:"expiresAt" bson:"expires_at"`
	LastAccessedAt time.Time `json:"lastAccessedAt" bson:"last_accessed_at"`
}

// Expired reports whether the record's expiry has passed as of now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// HasRole reports whether the session carries the given role.
func (r Record) HasRole(role string) bool {
	for _, got := range r.Roles {
		if got == role {
			return true
		}
	}
	return false
}

// Store is the contract the pool's protocol adapters use to authorize
// and track sessions. Implementations: Memory (tests, single-node) and
// Mongo (shared, multi-node gateways).
type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, sessionID string) (Record, error)
	Update(ctx context.Context, sessionID string, mutate func(*Record)) error
	Delete(ctx context.Context, sessionID string) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
	List(ctx context.Context, userID string) ([]Record, error)
}

func notFound(sessionID string) error {
	return errors.NotFound(fmt.Sprintf("session %s not found", sessionID))
}
