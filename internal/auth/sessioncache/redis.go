package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "legitid/internal/platform/redis"
	id "legitid/pkg/domain"
	"legitid/pkg/platform/sentinel"
)

const keyPrefix = "legitid:session:"

// Redis is the session registry for multi-replica deployments; the TTL is
// enforced by Redis key expiry.
type Redis struct {
	client *platformredis.Client
}

// NewRedis constructs a Redis-backed session registry.
func NewRedis(client *platformredis.Client) *Redis {
	return &Redis{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return keyPrefix + sessionID.String()
}

func (r *Redis) Put(ctx context.Context, sessionID id.SessionID, session Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(sessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	raw, err := r.client.Client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (r *Redis) IsActive(ctx context.Context, sessionID id.SessionID) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Remove(ctx context.Context, sessionID id.SessionID) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
