// Package sessioncache tracks active portal sessions. A login puts the
// session in the cache; a logout removes it, which invalidates any
// outstanding token carrying that session ID. The record also holds the
// backend access token so later requests can act against the remote backend
// on the session's behalf.
package sessioncache

import (
	"context"
	"time"

	id "legitid/pkg/domain"
)

// Session is the cached state behind an issued token.
type Session struct {
	UserID      id.UserID `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// Cache is the active-session registry.
//
// Get returns sentinel.ErrNotFound (possibly wrapped) for unknown or expired
// sessions. IsActive is the cheap existence probe the auth middleware uses.
type Cache interface {
	Put(ctx context.Context, sessionID id.SessionID, session Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID id.SessionID) (*Session, error)
	IsActive(ctx context.Context, sessionID id.SessionID) (bool, error)
	Remove(ctx context.Context, sessionID id.SessionID) error
}
