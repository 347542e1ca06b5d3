// internal/pkg/session/store.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"namy-service/internal/domain/ad"
	xerrors "namy-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Store keeps unlock-flow state in Redis: ad-watch sessions and the
// single-use consumption markers for issued unlock tokens.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// SaveWatchSession writes a session under its id with the given TTL. Used for
// both creation and watched-set updates; the TTL is refreshed on update so a
// session never outlives its last activity by more than ttl.
func (s *Store) SaveWatchSession(ctx context.Context, sess *ad.WatchSession, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal watch session: %w", err)
	}

	key := s.sessionKey(sess.SessionID)
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store watch session: %w", err)
	}
	return nil
}

// GetWatchSession loads a session by id.
func (s *Store) GetWatchSession(ctx context.Context, sessionID string) (*ad.WatchSession, error) {
	data, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load watch session: %w", err)
	}

	var sess ad.WatchSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal watch session: %w", err)
	}
	return &sess, nil
}

// DeleteWatchSession removes a completed session.
func (s *Store) DeleteWatchSession(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.sessionKey(sessionID)).Err()
}

// MarkTokenIssued records an unlock token's jti so it can be consumed exactly
// once. The TTL must match the token's own validity window.
func (s *Store) MarkTokenIssued(ctx context.Context, jti, deviceID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.tokenKey(jti), deviceID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark token issued: %w", err)
	}
	return nil
}

// ConsumeToken atomically removes the issuance marker for jti and returns the
// device it was bound to. A second consume of the same jti fails with
// ErrTokenConsumed.
func (s *Store) ConsumeToken(ctx context.Context, jti string) (string, error) {
	deviceID, err := s.client.GetDel(ctx, s.tokenKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return "", xerrors.ErrTokenConsumed
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume token: %w", err)
	}
	return deviceID, nil
}

func (s *Store) sessionKey(sessionID string) string {
	return fmt.Sprintf("unlock:session:%s", sessionID)
}

func (s *Store) tokenKey(jti string) string {
	return fmt.Sprintf("unlock:token:%s", jti)
}
