// Package ticket issues and validates the symmetric credentials used for
// service-to-service access: a ticket-granting ticket (TGT) minted at login,
// and short-lived service tickets exchanged for it. Tickets are sealed with a
// process-wide master key; clients treat them as opaque strings.
package ticket

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned for every validation failure. Callers cannot tell a
// tampered ticket from an expired or mistyped one.
var ErrInvalid = errors.New("ticket: invalid ticket")

const (
	typeTGT     = "tgt"
	typeService = "service"

	defaultTGTTTL     = time.Hour
	defaultServiceTTL = 10 * time.Minute

	sessionKeyLength = 32
)

// Payload is the sealed content of a ticket.
type Payload struct {
	Type       string `json:"typ"`
	UserID     string `json:"sub"`
	SessionKey string `json:"session_key"`
	Service    string `json:"service,omitempty"`
	ExpiresAt  int64  `json:"exp"`
}

// Authority seals and opens tickets under a single master key.
type Authority struct {
	aead       cipher.AEAD
	now        func() time.Time
	tgtTTL     time.Duration
	serviceTTL time.Duration
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

// WithTGTTTL overrides the ticket-granting ticket lifetime.
func WithTGTTTL(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.tgtTTL = d
		}
	}
}

// WithServiceTicketTTL overrides the service ticket lifetime.
func WithServiceTicketTTL(d time.Duration) Option {
	return func(a *Authority) {
		if d > 0 {
			a.serviceTTL = d
		}
	}
}

// NewAuthority creates an Authority from a 16, 24 or 32 byte master key.
// A 32 byte key selects AES-256.
func NewAuthority(masterKey []byte, opts ...Option) (*Authority, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("ticket: master key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ticket: aead: %w", err)
	}
	a := &Authority{
		aead:       aead,
		now:        time.Now,
		tgtTTL:     defaultTGTTTL,
		serviceTTL: defaultServiceTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// GenerateSessionKey returns a fresh random session key as a hex string.
func GenerateSessionKey() (string, error) {
	buf := make([]byte, sessionKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ticket: session key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IssueTGT seals a ticket-granting ticket binding userID to sessionKey.
func (a *Authority) IssueTGT(userID, sessionKey string) (string, error) {
	return a.seal(Payload{
		Type:       typeTGT,
		UserID:     userID,
		SessionKey: sessionKey,
		ExpiresAt:  a.now().Add(a.tgtTTL).Unix(),
	})
}

// IssueServiceTicket seals a service ticket scoped to a single target service.
func (a *Authority) IssueServiceTicket(userID, service, sessionKey string) (string, error) {
	if service == "" {
		return "", ErrInvalid
	}
	return a.seal(Payload{
		Type:       typeService,
		UserID:     userID,
		SessionKey: sessionKey,
		Service:    service,
		ExpiresAt:  a.now().Add(a.serviceTTL).Unix(),
	})
}

// ValidateTGT opens a ticket-granting ticket and returns its payload.
func (a *Authority) ValidateTGT(opaque string) (Payload, error) {
	p, err := a.open(opaque)
	if err != nil {
		return Payload{}, err
	}
	if p.Type != typeTGT {
		return Payload{}, ErrInvalid
	}
	return p, nil
}

// ValidateServiceTicket opens a service ticket and checks it targets
// expectedService. The caller must always name the service it is guarding;
// an empty expectedService never matches.
func (a *Authority) ValidateServiceTicket(opaque, expectedService string) (Payload, error) {
	if expectedService == "" {
		return Payload{}, ErrInvalid
	}
	p, err := a.open(opaque)
	if err != nil {
		return Payload{}, err
	}
	if p.Type != typeService {
		return Payload{}, ErrInvalid
	}
	if p.Service != expectedService {
		return Payload{}, ErrInvalid
	}
	return p, nil
}

func (a *Authority) seal(p Payload) (string, error) {
	if p.UserID == "" || p.SessionKey == "" {
		return "", ErrInvalid
	}
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("ticket: encode payload: %w", err)
	}
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("ticket: nonce: %w", err)
	}
	sealed := a.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (a *Authority) open(opaque string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil || len(raw) < a.aead.NonceSize() {
		return Payload{}, ErrInvalid
	}
	nonce, ciphertext := raw[:a.aead.NonceSize()], raw[a.aead.NonceSize():]
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Payload{}, ErrInvalid
	}
	var p Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return Payload{}, ErrInvalid
	}
	if a.now().Unix() >= p.ExpiresAt {
		return Payload{}, ErrInvalid
	}
	return p, nil
}
