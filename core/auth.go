package core

import (
	"errors"
	"time"
)

// Member is a locally registered account with credentials.
type Member struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// ExternalMember is an account created on first login through an
// external identity provider. It never carries credentials and its
// role is fixed to "member".
type ExternalMember struct {
	ID        int64
	Email     string
	Role      string
	CreatedAt time.Time
}

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const ProviderGoogle = "google"

var (
	// ErrInvalidCredentials is returned when id/password is wrong. It
	// covers both "no such member" and "wrong password" so callers
	// cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMemberNotFound is returned when a member lookup finds no row.
	ErrMemberNotFound = errors.New("member not found")

	// ErrDuplicateID is returned when a signup collides with an
	// existing member id.
	ErrDuplicateID = errors.New("member id already exists")
)

// SessionSeed is the resolved identity a login attempt produces. The
// session issuer turns it into a signed token.
type SessionSeed struct {
	SubjectID string
	Role      string
	Provider  string
}

// LoginAttempt is a closed set of login variants. Local credentials
// and external-provider assertions both resolve through the same
// IdentityResolver.
type LoginAttempt interface {
	loginAttempt()
}

// LocalCredentials is an id/password login attempt.
type LocalCredentials struct {
	ID       string
	Password string
}

// ExternalAssertion is a verified identity assertion from an external
// provider. Verification happens before this value is built; the
// resolver trusts the email.
type ExternalAssertion struct {
	Email    string
	Provider string
}

func (LocalCredentials) loginAttempt()  {}
func (ExternalAssertion) loginAttempt() {}

// IdentityResolver maps a login attempt to a canonical identity.
type IdentityResolver interface {
	Resolve(attempt LoginAttempt) (SessionSeed, error)
}
