package services

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"assistant/config"
)

// SessionStore hands out the ChatSession a request should use: one shared
// session, or one per client key expiring after a period of inactivity.
type SessionStore struct {
	scope     string
	model     ChatModel
	maxLength int

	global *ChatSession

	mu       sync.Mutex
	sessions *cache.Cache
}

// NewSessionStore creates a store for the given scope
func NewSessionStore(model ChatModel, maxLength int, scope string, ttl time.Duration) *SessionStore {
	if scope != config.SessionScopeClient {
		scope = config.SessionScopeGlobal
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	store := &SessionStore{
		scope:     scope,
		model:     model,
		maxLength: maxLength,
		global:    NewChatSession(model, maxLength),
	}
	if scope == config.SessionScopeClient {
		store.sessions = cache.New(ttl, ttl/3)
	}
	return store
}

// Session returns the session for the client key carried by ctx.
// Requests without a client key share the global session.
func (s *SessionStore) Session(ctx context.Context) *ChatSession {
	if s.scope != config.SessionScopeClient {
		return s.global
	}
	key := ClientKeyFromContext(ctx)
	if key == "" {
		return s.global
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.lookup(key)
	if !ok {
		session = NewChatSession(s.model, s.maxLength)
	}
	// re-set on every access so the TTL counts from the last use
	s.sessions.SetDefault(key, session)
	return session
}

func (s *SessionStore) lookup(key string) (*ChatSession, bool) {
	v, ok := s.sessions.Get(key)
	if !ok {
		return nil, false
	}
	session, ok := v.(*ChatSession)
	return session, ok
}

// Scope returns the effective session scope
func (s *SessionStore) Scope() string {
	return s.scope
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	if s.scope != config.SessionScopeClient {
		return 1
	}
	return s.sessions.ItemCount()
}

// GetStatus returns the store configuration and size
func (s *SessionStore) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"scope":              s.scope,
		"sessions":           s.Len(),
		"max_history_length": s.global.MaxLength(),
	}
}
