package apikey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authgrid.org/internal/secrets"
)

const (
	rawKeyLength = 32
	defaultTTL   = 30 * 24 * time.Hour
)

var defaultScopes = []string{"read", "write"}

// Service issues, validates and revokes API keys against a Store.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the default key lifetime.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, ttl: defaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate mints a new key for userID against serviceID and returns the
// record together with the raw key. The raw value is not recoverable later.
// A nil or empty scopes slice grants the default read and write scopes; a
// non-positive ttl selects the service default.
func (s *Service) Generate(ctx context.Context, userID, serviceID, role string, scopes []string, ttl time.Duration) (*Key, string, error) {
	if userID == "" || serviceID == "" || role == "" {
		return nil, "", ErrInvalidInput
	}
	raw := make([]byte, rawKeyLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("apikey: generate: %w", err)
	}
	rawKey := base64.RawURLEncoding.EncodeToString(raw)
	hash, err := secrets.Hash(rawKey)
	if err != nil {
		return nil, "", fmt.Errorf("apikey: hash: %w", err)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now().UTC()
	k := &Key{
		ID:        uuid.NewString(),
		UserID:    userID,
		ServiceID: serviceID,
		Role:      role,
		Scopes:    normalizeScopes(scopes),
		HashedKey: hash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, k); err != nil {
		return nil, "", fmt.Errorf("apikey: store: %w", err)
	}
	return k, rawKey, nil
}

// Validate resolves a raw key back to its record. Matching is a linear scan
// over unrevoked keys because raw values are salted-hashed and cannot be
// looked up directly. A matched but expired key yields ErrExpired; no match
// yields ErrInvalid.
func (s *Service) Validate(ctx context.Context, rawKey string) (*Key, error) {
	if rawKey == "" {
		return nil, ErrInvalid
	}
	keys, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("apikey: list: %w", err)
	}
	now := s.now().UTC()
	for _, k := range keys {
		if !secrets.Verify(k.HashedKey, rawKey) {
			continue
		}
		if !now.Before(k.ExpiresAt) {
			return nil, ErrExpired
		}
		return k, nil
	}
	return nil, ErrInvalid
}

// Revoke permanently disables the key with the given id. Revoking an already
// revoked key is a no-op.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	if _, err := s.store.Find(ctx, id); err != nil {
		return err
	}
	return s.store.MarkRevoked(ctx, id)
}

// List returns every key record owned by userID, revoked ones included.
func (s *Service) List(ctx context.Context, userID string) ([]*Key, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.store.ListByUser(ctx, userID)
}

// normalizeScopes dedupes the requested scopes, preserving order, and falls
// back to the defaults when none are given.
func normalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return append([]string(nil), defaultScopes...)
	}
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, scope)
	}
	if len(out) == 0 {
		return append([]string(nil), defaultScopes...)
	}
	return out
}
