// Package auth reads caller identity minted by the external auth service.
// It verifies bearer tokens; it never manages credentials or sessions.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/betonops/receivables/internal/shared"
)

// ErrInvalidToken indicates a missing, malformed or expired bearer token.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims carried by tokens from the auth service.
type Claims struct {
	Name string   `json:"name"`
	Caps []string `json:"caps"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens and resolves them to callers.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier constructs a Verifier. An empty issuer disables the issuer check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses the raw token and returns the caller it identifies.
func (v *Verifier) Verify(raw string) (shared.Caller, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return shared.Caller{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return shared.Caller{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return shared.Caller{}, fmt.Errorf("%w: subject required", ErrInvalidToken)
	}
	caps := make([]shared.Capability, 0, len(claims.Caps))
	for _, c := range claims.Caps {
		caps = append(caps, shared.Capability(c))
	}
	return shared.NewCaller(claims.Subject, claims.Name, caps...), nil
}

// Issue signs a token for the caller. The engine uses it for operator tooling
// and tests; production tokens come from the auth service.
func (v *Verifier) Issue(caller shared.Caller, ttl time.Duration) (string, error) {
	now := v.now()
	caps := make([]string, 0)
	for _, c := range caller.Capabilities() {
		caps = append(caps, string(c))
	}
	claims := Claims{
		Name: caller.Name,
		Caps: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
