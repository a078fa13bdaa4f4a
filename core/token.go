package core

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the verified attributes carried by a session token.
type SessionClaims struct {
	SubjectID string
	Role      string
	Provider  string
}

// ErrInvalidSession is returned for any token that fails verification:
// bad signature, expired, malformed, or missing claims. Callers treat
// the request as unauthenticated.
var ErrInvalidSession = errors.New("invalid session token")

// SessionIssuer packages a resolved identity into a signed stateless
// token and rehydrates it on each request.
type SessionIssuer interface {
	Issue(seed SessionSeed) (string, error)
	Rehydrate(raw string) (SessionClaims, error)
}

// JWTSessionIssuer signs HS256 tokens with a shared secret. No session
// state is kept server-side; expiry is part of the token.
type JWTSessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTSessionIssuer(secret string, ttl time.Duration) *JWTSessionIssuer {
	return &JWTSessionIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type sessionTokenClaims struct {
	Role     string `json:"role"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

func (i *JWTSessionIssuer) Issue(seed SessionSeed) (string, error) {
	if seed.SubjectID == "" {
		return "", errors.New("empty subject id")
	}
	now := i.now()
	claims := sessionTokenClaims{
		Role:     seed.Role,
		Provider: seed.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   seed.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Rehydrate fails closed: any verification error yields ErrInvalidSession.
func (i *JWTSessionIssuer) Rehydrate(raw string) (SessionClaims, error) {
	var claims sessionTokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return SessionClaims{}, ErrInvalidSession
	}
	if claims.Subject == "" {
		return SessionClaims{}, ErrInvalidSession
	}
	if claims.Role != RoleAdmin && claims.Role != RoleMember {
		return SessionClaims{}, ErrInvalidSession
	}
	return SessionClaims{
		SubjectID: claims.Subject,
		Role:      claims.Role,
		Provider:  claims.Provider,
	}, nil
}
