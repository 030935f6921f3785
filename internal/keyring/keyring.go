// Package keyring loads and caches the asymmetric key material used to
// decrypt client-encrypted payloads. Key pairs live on disk as PEM files
// addressed by a key id (typically a year/version tag): the server public key
// as server_public.pem, private keys as private_<key_id>.pem.
package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrUnknownKey indicates no key material exists for the requested key id.
	ErrUnknownKey = errors.New("keyring: unknown key id")

	// ErrDecryptionFailed indicates a padding or integrity mismatch. It does
	// not distinguish a wrong key from a corrupted ciphertext.
	ErrDecryptionFailed = errors.New("keyring: decryption failed")
)

const (
	publicKeyFile    = "server_public.pem"
	privateKeyPrefix = "private_"
	defaultCacheSize = 32
)

// Ring resolves key material from a directory of PEM files. The public key is
// read once and held for the process lifetime; private keys are loaded lazily
// into a bounded LRU cache.
type Ring struct {
	dir string

	pubOnce sync.Once
	pub     []byte
	pubErr  error

	cache *lru.Cache[string, *rsa.PrivateKey]
}

type settings struct {
	cacheSize int
}

// Option configures a Ring.
type Option func(*settings)

// WithCacheSize bounds the number of cached private keys.
func WithCacheSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// New creates a Ring over the given key directory.
func New(dir string, opts ...Option) (*Ring, error) {
	set := settings{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&set)
	}
	cache, err := lru.New[string, *rsa.PrivateKey](set.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("keyring: cache: %w", err)
	}
	return &Ring{dir: dir, cache: cache}, nil
}

// PublicKey returns the server public key PEM. The file is read on first use
// and cached until the process restarts.
func (r *Ring) PublicKey() ([]byte, error) {
	r.pubOnce.Do(func() {
		r.pub, r.pubErr = os.ReadFile(filepath.Join(r.dir, publicKeyFile))
	})
	if r.pubErr != nil {
		return nil, fmt.Errorf("keyring: read public key: %w", r.pubErr)
	}
	return r.pub, nil
}

// Decrypt decrypts an RSA-OAEP sealed payload with the private key named by
// keyID. SHA-256 serves as both the digest and the MGF1 hash. The ciphertext
// must already be decoded from its transport encoding.
func (r *Ring) Decrypt(ciphertext []byte, keyID string) ([]byte, error) {
	key, err := r.privateKey(keyID)
	if err != nil {
		return nil, err
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, key, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func (r *Ring) privateKey(keyID string) (*rsa.PrivateKey, error) {
	if !validKeyID(keyID) {
		return nil, ErrUnknownKey
	}
	if key, ok := r.cache.Get(keyID); ok {
		return key, nil
	}
	pemBytes, err := os.ReadFile(filepath.Join(r.dir, privateKeyPrefix+keyID+".pem"))
	if err != nil {
		return nil, ErrUnknownKey
	}
	key, err := parsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("keyring: parse key %s: %w", keyID, err)
	}
	// Two concurrent cold loads of the same id may both reach this point;
	// either insert wins and both converge on an equivalent key.
	r.cache.Add(keyID, key)
	return key, nil
}

// validKeyID restricts key ids to a flat namespace so a caller-supplied id
// can never address files outside the key directory.
func validKeyID(keyID string) bool {
	if keyID == "" {
		return false
	}
	for _, c := range keyID {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("invalid PEM private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("unsupported private key type")
	default:
		return nil, fmt.Errorf("unsupported private key type %s", block.Type)
	}
}
