package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quiz-attempt-service/internal/domain"
)

// ErrUnauthorized marks a missing, malformed or expired bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// Claims are the JWT claims carried by bearer tokens. The subject is the username.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokens(secret, issuer string) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue mints a token for username with the given role, valid for ttl.
func (t *Tokens) Issue(username string, role domain.Role, ttl time.Duration) (string, error) {
	if username == "" {
		return "", fmt.Errorf("issue token: empty username")
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return "", fmt.Errorf("issue token: unknown role %q", role)
	}
	now := t.now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses a bearer token into the caller's principal.
func (t *Tokens) Verify(raw string) (domain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	role := domain.Role(claims.Role)
	switch role {
	case "":
		role = domain.RoleUser
	case domain.RoleUser, domain.RoleAdmin:
	default:
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", ErrUnauthorized, claims.Role)
	}
	return domain.Principal{Username: claims.Subject, Role: role}, nil
}
