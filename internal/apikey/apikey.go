// Package apikey manages long-lived scoped credentials. A key's raw value is
// shown exactly once at generation; only its hash is stored, so validation
// walks the active keys and checks each hash. Revocation is one way.
package apikey

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalid indicates the presented key matches no active record.
	ErrInvalid = errors.New("apikey: invalid key")

	// ErrExpired indicates the presented key matched a record past its expiry.
	ErrExpired = errors.New("apikey: expired key")

	// ErrNotFound indicates no key record exists for the given id.
	ErrNotFound = errors.New("apikey: not found")

	// ErrInvalidInput indicates a request that fails validation.
	ErrInvalidInput = errors.New("apikey: invalid input")
)

// Key is a stored API key record. HashedKey never leaves the server.
type Key struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ServiceID string    `json:"service_id"`
	Role      string    `json:"role"`
	Scopes    []string  `json:"scopes"`
	HashedKey string    `json:"-"`
	Revoked   bool      `json:"revoked"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the key is neither revoked nor expired at t.
func (k *Key) Active(t time.Time) bool {
	return !k.Revoked && t.Before(k.ExpiresAt)
}

// HasScope reports whether the key carries the given scope.
func (k *Key) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Store describes persistence operations required for API keys.
type Store interface {
	Create(ctx context.Context, k *Key) error
	Find(ctx context.Context, id string) (*Key, error)
	ListByUser(ctx context.Context, userID string) ([]*Key, error)
	ListActive(ctx context.Context) ([]*Key, error)
	MarkRevoked(ctx context.Context, id string) error
}
