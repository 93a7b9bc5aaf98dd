package jwtx

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants. Access tokens are short-lived; the refresh
// token carries the session.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType separates the two token classes. A refresh token must never be
// accepted where an access token is expected, even with a shared secret.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// ErrInvalid is the umbrella for every verification failure. The specific
// errors below all wrap it, so callers that only care about "bad token"
// can match on ErrInvalid alone.
var ErrInvalid = errors.New("jwtx: invalid token")

var (
	ErrEmpty        = fmt.Errorf("%w: empty", ErrInvalid)
	ErrMalformed    = fmt.Errorf("%w: malformed", ErrInvalid)
	ErrInvalidSig   = fmt.Errorf("%w: signature", ErrInvalid)
	ErrWrongType    = fmt.Errorf("%w: wrong token type", ErrInvalid)
	ErrIssuer       = fmt.Errorf("%w: issuer mismatch", ErrInvalid)
	ErrExpired      = fmt.Errorf("%w: expired", ErrInvalid)
	ErrNotYetValid  = fmt.Errorf("%w: not yet valid", ErrInvalid)
	ErrInvalidClaim = fmt.Errorf("%w: claims", ErrInvalid)
)

// Claims are the session claims carried by both token classes.
type Claims struct {
	jwt.RegisteredClaims

	Email string    `json:"email"`
	Role  string    `json:"role"`
	Type  TokenType `json:"typ"`
}

// Identity is what gets embedded into a freshly issued token pair.
type Identity struct {
	AccountID int64
	Email     string
	Role      string
}

// NewClaims builds minimally-correct claims for one token class.
func NewClaims(id Identity, typ TokenType, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(id.AccountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email: id.Email,
		Role:  id.Role,
		Type:  typ,
	}
}

// NewJTI returns a random identifier for the "jti" claim. Two tokens minted
// for the same account within the same second still differ because of it.
func NewJTI() string {
	return uuid.NewString()
}

// AccountID parses the subject back into the numeric account id.
func (c *Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: subject %q", ErrInvalidClaim, c.Subject)
	}
	return id, nil
}

// ExpiresIn reports the remaining lifetime at now, never negative.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}
