// Package token mints and verifies the bearer tokens backing the HTTP API:
// a short-lived access token and a long-lived refresh token. The two classes
// are signed with distinct secrets, so a refresh token can never be replayed
// as an access token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Class distinguishes the two token kinds.
type Class string

const (
	// Access tokens authenticate API requests.
	Access Class = "access"
	// Refresh tokens mint replacement access tokens.
	Refresh Class = "refresh"
)

var (
	// ErrExpired indicates a token that verified but is past its expiry.
	ErrExpired = errors.New("token: expired")

	// ErrMalformed covers every other verification failure: bad signature,
	// wrong class, wrong issuer, or a string that is not a token at all.
	ErrMalformed = errors.New("token: malformed")
)

const (
	defaultAccessTTL  = 20 * time.Minute
	defaultRefreshTTL = 14 * 24 * time.Hour

	issuerName = "authgrid-api"
)

// Claims carries the token class alongside the registered JWT claims.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Authority signs and verifies both token classes.
type Authority struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// Option configures an Authority.
type Option func(*Authority)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		if now != nil {
			a.now = now
		}
	}
}

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.accessTTL = d
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.refreshTTL = d
		}
	}
}

// WithIssuer overrides the issuer claim stamped into new tokens.
func WithIssuer(issuer string) Option {
	return func(a *Authority) {
		if issuer != "" {
			a.issuer = issuer
		}
	}
}

// NewAuthority creates an Authority. Both secrets are required and must
// differ; sharing one secret would collapse the two token classes into one.
func NewAuthority(accessSecret, refreshSecret string, opts ...Option) (*Authority, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token: both signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	a := &Authority{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		issuer:        issuerName,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// IssueAccess mints an access token for subject and returns it with its
// expiry time.
func (a *Authority) IssueAccess(subject string) (string, time.Time, error) {
	return a.issue(subject, Access, a.accessTTL)
}

// IssueRefresh mints a refresh token for subject and returns it with its
// expiry time.
func (a *Authority) IssueRefresh(subject string) (string, time.Time, error) {
	return a.issue(subject, Refresh, a.refreshTTL)
}

func (a *Authority) issue(subject string, class Class, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrMalformed
	}
	now := a.now()
	expires := now.Add(ttl)
	claims := Claims{
		TokenType: string(class),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretFor(class))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expires, nil
}

// Verify checks a token string against the given class and returns its
// claims. Expiry is reported as ErrExpired; every other failure maps to
// ErrMalformed.
func (a *Authority) Verify(tokenString string, class Class) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secretFor(class), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.TokenType != string(class) || claims.Issuer != a.issuer || claims.Subject == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

func (a *Authority) secretFor(class Class) []byte {
	if class == Refresh {
		return a.refreshSecret
	}
	return a.accessSecret
}
