// Package secrets implements the one-way hashing discipline shared by user
// passwords and raw API keys. Hashes are self-describing: the cost parameters
// and salt travel inside the encoded string, so verification never depends on
// the parameters configured at hash time.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidInput indicates the secret is empty or not representable as text.
var ErrInvalidInput = errors.New("secrets: invalid input")

// Cost parameters applied to newly created hashes.
const (
	iterations  = 3
	memory      = 64 * 1024
	parallelism = 2
	keyLength   = 32
	saltLength  = 16
)

// Hash derives an argon2id hash of secret and returns it in PHC string format.
func Hash(secret string) (string, error) {
	if len(secret) == 0 || !utf8.ValidString(secret) {
		return "", ErrInvalidInput
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(secret), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether candidate matches the encoded hash. The comparison
// runs in constant time over the hash output. A malformed encoded hash yields
// false rather than an error.
func Verify(encoded, candidate string) bool {
	params, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(candidate), salt, params.iterations, params.memory, params.parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

type hashParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decodeHash(encoded string) (hashParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return hashParams{}, nil, nil, errors.New("malformed hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return hashParams{}, nil, nil, errors.New("unsupported hash version")
	}
	var params hashParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &params.parallelism); err != nil {
		return hashParams{}, nil, nil, errors.New("malformed cost parameters")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return hashParams{}, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return hashParams{}, nil, nil, err
	}
	if len(salt) == 0 || len(hash) == 0 {
		return hashParams{}, nil, nil, errors.New("empty salt or hash")
	}
	return params, salt, hash, nil
}
