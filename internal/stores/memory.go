package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/password"
	"github.com/MrEthical07/sessionauth/store"
)

// MemoryUsers is a process-local user directory.
type MemoryUsers struct {
	hasher password.Hasher

	mu    sync.RWMutex
	users map[identity.Email]store.User
}

var _ store.UserDirectory = (*MemoryUsers)(nil)

func NewMemoryUsers(hasher password.Hasher) *MemoryUsers {
	return &MemoryUsers{
		hasher: hasher,
		users:  make(map[identity.Email]store.User),
	}
}

func (s *MemoryUsers) Insert(_ context.Context, user store.NewUser) error {
	// Hash outside the lock; argon2 is slow and the result is discarded on conflict.
	hash, err := s.hasher.Hash(user.Password.Reveal())
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Email]; exists {
		return store.ErrUserExists
	}
	s.users[user.Email] = store.User{
		Email:         user.Email,
		PasswordHash:  hash,
		RequiresTwoFA: user.RequiresTwoFA,
	}
	return nil
}

func (s *MemoryUsers) Get(_ context.Context, email identity.Email) (store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return store.User{}, store.ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryUsers) Validate(ctx context.Context, email identity.Email, pw identity.Password) error {
	user, err := s.Get(ctx, email)
	if err != nil {
		return err
	}
	return verifyHash(s.hasher, pw, user.PasswordHash)
}

func verifyHash(hasher password.Hasher, pw identity.Password, encoded string) error {
	ok, err := hasher.Verify(pw.Reveal(), encoded)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return store.ErrInvalidCredentials
		}
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return store.ErrInvalidCredentials
	}
	return nil
}

type memoryChallenge struct {
	id        identity.ChallengeID
	code      identity.TwoFACode
	expiresAt time.Time
}

// MemoryChallenges keeps one challenge per email and checks expiry on read.
type MemoryChallenges struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	records map[identity.Email]memoryChallenge
}

var _ store.ChallengeStore = (*MemoryChallenges)(nil)

func NewMemoryChallenges(ttl time.Duration) *MemoryChallenges {
	return &MemoryChallenges{
		ttl:     ttl,
		now:     time.Now,
		records: make(map[identity.Email]memoryChallenge),
	}
}

func (s *MemoryChallenges) Put(_ context.Context, email identity.Email, id identity.ChallengeID, code identity.TwoFACode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[email] = memoryChallenge{id: id, code: code, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryChallenges) Get(_ context.Context, email identity.Email) (identity.ChallengeID, identity.TwoFACode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[email]
	if !ok || !s.now().Before(rec.expiresAt) {
		return identity.ChallengeID{}, identity.TwoFACode{}, store.ErrChallengeNotFound
	}
	return rec.id, rec.code, nil
}

func (s *MemoryChallenges) Remove(_ context.Context, email identity.Email, id identity.ChallengeID) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok || rec.id != id {
		return false, nil
	}
	delete(s.records, email)
	return now.Before(rec.expiresAt), nil
}

// WithClock replaces time.Now for expiry checks.
func (s *MemoryChallenges) WithClock(now func() time.Time) *MemoryChallenges {
	s.now = now
	return s
}

// Prune drops expired challenges and reports how many were removed.
func (s *MemoryChallenges) Prune() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for email, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			delete(s.records, email)
			n++
		}
	}
	return n
}

// MemoryRevocations maps token to the instant its ban may be forgotten.
type MemoryRevocations struct {
	now func() time.Time

	mu     sync.RWMutex
	banned map[string]time.Time
}

var _ store.RevocationStore = (*MemoryRevocations)(nil)

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		now:    time.Now,
		banned: make(map[string]time.Time),
	}
}

func (s *MemoryRevocations) WithClock(now func() time.Time) *MemoryRevocations {
	s.now = now
	return s
}

func (s *MemoryRevocations) Ban(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	until := s.now().Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.banned[token]; !ok || until.After(current) {
		s.banned[token] = until
	}
	return nil
}

func (s *MemoryRevocations) IsBanned(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, ok := s.banned[token]
	return ok && s.now().Before(until), nil
}

// Prune drops bans whose tokens have expired anyway.
func (s *MemoryRevocations) Prune() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for token, until := range s.banned {
		if !now.Before(until) {
			delete(s.banned, token)
			n++
		}
	}
	return n
}

// Len returns the number of tracked bans, expired or not.
func (s *MemoryRevocations) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.banned)
}
