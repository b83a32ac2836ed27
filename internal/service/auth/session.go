package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore tracks the live session token per user.
type SessionStore interface {
	Save(ctx context.Context, userID, token string, ttl time.Duration) error
	Valid(ctx context.Context, userID, token string) (bool, error)
	Revoke(ctx context.Context, userID string) error
}

type memorySession struct {
	token     string
	expiresAt time.Time
}

// MemorySessions keeps sessions in process. Used when Redis is not configured;
// sessions do not survive a restart and are not shared between instances.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]memorySession), now: time.Now}
}

func (m *MemorySessions) Save(_ context.Context, userID, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := memorySession{token: token}
	if ttl > 0 {
		sess.expiresAt = m.now().Add(ttl)
	}
	m.sessions[userID] = sess
	return nil
}

func (m *MemorySessions) Valid(_ context.Context, userID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return false, nil
	}
	if !sess.expiresAt.IsZero() && !m.now().Before(sess.expiresAt) {
		delete(m.sessions, userID)
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(sess.token), []byte(token)) == 1, nil
}

func (m *MemorySessions) Revoke(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// RedisSessions stores one token per user under session:<userId>. A new login
// replaces the previous session.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

func sessionKey(userID string) string {
	return "session:" + userID
}

func (s *RedisSessions) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionKey(userID), token, ttl).Err()
}

func (s *RedisSessions) Valid(ctx context.Context, userID, token string) (bool, error) {
	stored, err := s.rdb.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

func (s *RedisSessions) Revoke(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}
