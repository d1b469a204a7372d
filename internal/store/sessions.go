package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"homegrid-data/internal/authz"
)

// SessionStore keeps login sessions in the KV under an opaque token. The
// token is all the client holds; identity lives server-side.
type SessionStore struct {
	kv  KV
	ttl time.Duration
}

func NewSessionStore(kv KV, ttl time.Duration) *SessionStore {
	return &SessionStore{kv: kv, ttl: ttl}
}

func sessionKey(token string) string { return "session:" + token }

// Create stores a new session and returns its token.
func (s *SessionStore) Create(ctx context.Context, sess authz.Session) (string, error) {
	token := uuid.NewString()
	raw, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, sessionKey(token), string(raw), s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a token; ErrMiss for unknown or expired tokens. The TTL is
// refreshed on every successful lookup.
func (s *SessionStore) Lookup(ctx context.Context, token string) (authz.Session, error) {
	raw, err := s.kv.Get(ctx, sessionKey(token))
	if err != nil {
		return authz.Session{}, err
	}
	var sess authz.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return authz.Session{}, err
	}
	_ = s.kv.Set(ctx, sessionKey(token), raw, s.ttl)
	return sess, nil
}

// Revoke drops the session; unknown tokens are not an error.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	return s.kv.Del(ctx, sessionKey(token))
}
