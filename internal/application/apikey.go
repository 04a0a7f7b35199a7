package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidAPIKeyHash         = errors.New("invalid api key hash format")
	ErrIncompatibleAPIKeyVersion = errors.New("incompatible api key hash version")
)

type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashAPIKey derives an encoded argon2id hash suitable for SCHEDULER_API_KEY_HASH.
func HashAPIKey(key string, params Argon2idParams) (string, error) {
	if strings.TrimSpace(key) == "" {
		vErr := &ValidationError{}
		vErr.add("key", "key is required")
		return "", vErr
	}

	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	// $argon2id$v=19$m=...,t=...,p=...$salt$hash
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.Memory, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// KeyVerifier checks presented API keys against one stored argon2id hash.
type KeyVerifier struct {
	encoded string
}

// NewKeyVerifier validates the encoded hash up front so a malformed
// configuration fails at startup rather than on the first request.
func NewKeyVerifier(encoded string) (*KeyVerifier, error) {
	if _, _, _, err := decodeAPIKeyHash(encoded); err != nil {
		return nil, err
	}
	return &KeyVerifier{encoded: encoded}, nil
}

// Verify returns ErrUnauthorized unless key matches the stored hash.
func (v *KeyVerifier) Verify(key string) error {
	if v == nil {
		return nil
	}
	return VerifyAPIKey(v.encoded, key)
}

// VerifyAPIKey compares key against an encoded argon2id hash in constant time.
func VerifyAPIKey(encoded, key string) error {
	params, salt, expected, err := decodeAPIKeyHash(encoded)
	if err != nil {
		return err
	}

	actual := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	if subtle.ConstantTimeCompare(expected, actual) == 1 {
		return nil
	}
	return ErrUnauthorized
}

func decodeAPIKeyHash(encoded string) (Argon2idParams, []byte, []byte, error) {
	var params Argon2idParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidAPIKeyHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidAPIKeyHash, err)
	}
	if version != argon2.Version {
		return params, nil, nil, ErrIncompatibleAPIKeyVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidAPIKeyHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidAPIKeyHash, err)
	}
	params.SaltLength = uint32(len(salt))

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidAPIKeyHash, err)
	}
	params.KeyLength = uint32(len(hash))

	return params, salt, hash, nil
}
