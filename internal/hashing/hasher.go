package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"nurseconnect-registration/internal/config"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("invalid hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

const algorithm = "argon2id-v1"

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher hashes API tokens with Argon2id. The SECRET_KEY acts as a pepper, so
// a leaked token list is useless without the deployment secret.
type Hasher struct {
	params Argon2Params
	pepper string
}

type HashResult struct {
	Hash      string `json:"hash"`
	Salt      string `json:"salt"`
	Algorithm string `json:"algorithm"`
}

func NewHasher(cfg *config.Config) *Hasher {
	return &Hasher{
		params: Argon2Params{
			Memory:      uint32(cfg.Hashing.Argon2MemoryCost),
			Iterations:  uint32(cfg.Hashing.Argon2TimeCost),
			Parallelism: uint8(cfg.Hashing.Argon2Parallelism),
			SaltLength:  16,
			KeyLength:   32,
		},
		pepper: cfg.SecretKey,
	}
}

func (h *Hasher) HashToken(token string) (*HashResult, error) {
	return h.hashWithPepper(token, "api-token")
}

func (h *Hasher) VerifyToken(token string, hashResult *HashResult) (bool, error) {
	return h.verifyWithPepper(token, hashResult, "api-token")
}

func (h *Hasher) hashWithPepper(data, context string) (*HashResult, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(data+h.pepper+context),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return &HashResult{
		Hash:      base64.RawURLEncoding.EncodeToString(hash),
		Salt:      base64.RawURLEncoding.EncodeToString(salt),
		Algorithm: algorithm,
	}, nil
}

func (h *Hasher) verifyWithPepper(data string, hashResult *HashResult, context string) (bool, error) {
	if hashResult.Algorithm != algorithm {
		return false, ErrIncompatibleVersion
	}

	salt, err := base64.RawURLEncoding.DecodeString(hashResult.Salt)
	if err != nil {
		return false, ErrInvalidHash
	}

	expectedHash, err := base64.RawURLEncoding.DecodeString(hashResult.Hash)
	if err != nil || len(expectedHash) == 0 {
		return false, ErrInvalidHash
	}

	computedHash := argon2.IDKey(
		[]byte(data+h.pepper+context),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		uint32(len(expectedHash)),
	)

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// Encode renders the result as "argon2id-v1.<salt>.<hash>", the form stored
// in API_TOKENS.
func (r *HashResult) Encode() string {
	return r.Algorithm + "." + r.Salt + "." + r.Hash
}

// ParseHash is the inverse of Encode.
func ParseHash(encoded string) (*HashResult, error) {
	parts := strings.Split(encoded, ".")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return nil, ErrInvalidHash
	}
	return &HashResult{Algorithm: parts[0], Salt: parts[1], Hash: parts[2]}, nil
}
