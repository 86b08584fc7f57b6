// Package identity verifies bearer credentials and issues local tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const (
	localPrefix  = "local:"
	googlePrefix = "google:"
)

// Verifier turns a bearer credential into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*authctx.Identity, error)
}

// Issuer signs tokens for identities this server vouches for.
type Issuer interface {
	Issue(identity authctx.Identity) (string, time.Time, error)
}

// LocalExternalID is the external id of a password account.
func LocalExternalID(accountID uuid.UUID) string {
	return localPrefix + accountID.String()
}

// GoogleExternalID is the external id of a Google account.
func GoogleExternalID(subject string) string {
	return googlePrefix + subject
}

type claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider signs and verifies HS256 tokens.
type JWTProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTProvider(secret, issuer string, ttl time.Duration) *JWTProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTProvider{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (p *JWTProvider) Issue(identity authctx.Identity) (string, time.Time, error) {
	if identity.ExternalID == "" || identity.Email == "" {
		return "", time.Time{}, fmt.Errorf("issue token: identity without subject or email")
	}

	now := p.now()
	expiresAt := now.Add(p.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:   strings.ToLower(identity.Email),
		Name:    identity.Name,
		Picture: identity.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ExternalID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (p *JWTProvider) Verify(ctx context.Context, raw string) (*authctx.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" || c.Email == "" {
		return nil, ErrInvalidToken
	}

	return &authctx.Identity{
		ExternalID: c.Subject,
		Email:      c.Email,
		Name:       c.Name,
		Picture:    c.Picture,
	}, nil
}
