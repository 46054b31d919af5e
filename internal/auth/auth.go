package auth

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidToken reports a token that resolves to no account.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the resolved owner of a connection. Account is the stable key
// used for seating and reconnection; DisplayName is what other players see.
type Identity struct {
	Account     string
	DisplayName string
}

// TokenResolver maps opaque bearer tokens to identities. Connections present
// a token once, at attach time; everything after that is keyed by account.
type TokenResolver interface {
	Resolve(token string) (Identity, error)
}

// MemoryStore is an in-process token table. Suitable for single-node
// deployments and tests; an external identity service would slot in behind
// the same TokenResolver interface.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]Identity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]Identity)}
}

// Grant mints a fresh token for the identity and returns it.
func (s *MemoryStore) Grant(id Identity) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = id
	s.mu.Unlock()
	return token
}

func (s *MemoryStore) Resolve(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	s.mu.RLock()
	id, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

// Revoke removes a token. Unknown tokens are ignored.
func (s *MemoryStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// PassthroughResolver treats the token itself as the account name. Used in
// development mode where no identity service is configured.
type PassthroughResolver struct{}

func (PassthroughResolver) Resolve(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Account: token, DisplayName: token}, nil
}
