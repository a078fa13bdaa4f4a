package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// StoreIdentityResolver resolves login attempts against the member
// store. Local attempts verify credentials; external attempts run
// find-or-create on first login.
type StoreIdentityResolver struct {
	members   MemberRepository
	externals ExternalMemberRepository
	hasher    PasswordHasher
}

func NewStoreIdentityResolver(members MemberRepository, externals ExternalMemberRepository, hasher PasswordHasher) *StoreIdentityResolver {
	return &StoreIdentityResolver{members: members, externals: externals, hasher: hasher}
}

// Resolve dispatches on the login variant.
func (s *StoreIdentityResolver) Resolve(attempt LoginAttempt) (SessionSeed, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	switch a := attempt.(type) {
	case LocalCredentials:
		return s.resolveLocal(ctx, a)
	case ExternalAssertion:
		return s.resolveExternal(ctx, a)
	default:
		return SessionSeed{}, fmt.Errorf("unknown login attempt type %T", attempt)
	}
}

func (s *StoreIdentityResolver) resolveLocal(ctx context.Context, creds LocalCredentials) (SessionSeed, error) {
	if strings.TrimSpace(creds.ID) == "" || creds.Password == "" {
		return SessionSeed{}, ErrInvalidCredentials
	}

	m, err := s.members.FindByID(ctx, creds.ID)
	if err != nil || m == nil {
		// Unknown id and wrong password produce the same error.
		return SessionSeed{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(m.PasswordHash, creds.Password) {
		return SessionSeed{}, ErrInvalidCredentials
	}
	return SessionSeed{SubjectID: m.ID, Role: m.Role}, nil
}

// resolveExternal never fails on "not found": the first login is an
// implicit registration. Duplicate suppression under concurrent first
// logins is enforced by the store's unique constraint, not here.
func (s *StoreIdentityResolver) resolveExternal(ctx context.Context, assertion ExternalAssertion) (SessionSeed, error) {
	email := strings.ToLower(strings.TrimSpace(assertion.Email))
	if email == "" {
		return SessionSeed{}, ErrInvalidCredentials
	}

	em, err := s.externals.FindOrCreate(ctx, email)
	if err != nil {
		return SessionSeed{}, err
	}
	return SessionSeed{SubjectID: em.Email, Role: em.Role, Provider: assertion.Provider}, nil
}
