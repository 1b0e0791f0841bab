// Package identity holds registered users and their live sessions.
//
// The Store is safe for concurrent use. Every check-then-insert (username
// availability, session creation) happens inside one critical section.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/dmitrijs2005/realmchat/internal/server/auth"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]*User
	sessions map[string]string // session id -> username

	secret []byte
	cost   int
}

type Option func(*Store)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Store) {
		s.cost = cost
	}
}

// NewStore returns an empty store that signs session tokens with secret.
func NewStore(secret []byte, opts ...Option) *Store {
	s := &Store{
		users:    make(map[string]*User),
		sessions: make(map[string]string),
		secret:   secret,
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed registers accounts without opening sessions for them.
func (s *Store) Seed(ctx context.Context, seeds ...Seed) error {
	for _, seed := range seeds {
		if _, err := s.create(seed.Username, seed.Password, seed.Name, seed.Country); err != nil {
			return fmt.Errorf("seed %s: %w", seed.Username, err)
		}
	}
	return nil
}

// Register creates a user and logs it in, returning the session token.
func (s *Store) Register(ctx context.Context, username, password, name, country string) (string, error) {
	u, err := s.create(username, password, name, country)
	if err != nil {
		return "", err
	}
	return s.openSession(u.Username)
}

// Authenticate checks the password and opens a new session. A user may hold
// any number of sessions at once.
func (s *Store) Authenticate(ctx context.Context, username, password string) (string, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return "", common.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword(u.passwordHash, prehash(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", common.ErrBadCredential
		}
		return "", fmt.Errorf("compare password: %w", err)
	}

	return s.openSession(username)
}

// Resolve maps a session token to its user. Tokens that are forged, malformed,
// or no longer in the session table yield common.ErrUnauthorized.
func (s *Store) Resolve(ctx context.Context, token string) (User, error) {
	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		return User{}, common.ErrUnauthorized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	username, ok := s.sessions[claims.ID]
	if !ok || username != claims.Subject {
		return User{}, common.ErrUnauthorized
	}
	u, ok := s.users[username]
	if !ok {
		return User{}, common.ErrUnauthorized
	}
	return *u, nil
}

// Revoke ends the session behind token.
func (s *Store) Revoke(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		return common.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[claims.ID]; !ok {
		return common.ErrUnauthorized
	}
	delete(s.sessions, claims.ID)
	return nil
}

// Exists reports whether username is registered.
func (s *Store) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// Lookup returns a copy of the user record.
func (s *Store) Lookup(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return User{}, common.ErrUserNotFound
	}
	return *u, nil
}

// Count returns the number of registered users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// create hashes outside the lock, then checks and inserts atomically.
func (s *Store) create(username, password, name, country string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: username, Name: name, Country: country, passwordHash: hash}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return nil, common.ErrUserAlreadyExists
	}
	s.users[username] = u
	return u, nil
}

func (s *Store) openSession(username string) (string, error) {
	token, sessionID, err := auth.GenerateToken(username, s.secret)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	s.mu.Lock()
	s.sessions[sessionID] = username
	s.mu.Unlock()

	return token, nil
}

// prehash reduces password to 44 bytes so bcrypt's 72-byte input limit never
// applies.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
