package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 8
	algorithmID           = "argon2id"
)

// Config holds the Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns interactive-login cost parameters (64 MiB, t=3).
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords with Argon2id. Safe for concurrent
// use.
type Hasher struct {
	config Config
}

// NewHasher validates cfg and returns a [Hasher].
func NewHasher(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("argon2 memory below minimum")
	case cfg.Time < 1:
		return nil, errors.New("argon2 time cost below minimum")
	case cfg.Parallelism < 1:
		return nil, errors.New("argon2 parallelism below minimum")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("argon2 salt length below minimum")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("argon2 key length below minimum")
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives a PHC-encoded hash for password. Raw bytes are hashed
// exactly as provided; no Unicode normalization is applied.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < minPassBytes {
		return "", fmt.Errorf("password must be at least %d bytes", minPassBytes)
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the PHC-encoded hash. The cost
// parameters embedded in the hash are used, not the Hasher's own, so old
// hashes keep verifying after a cost bump.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	memory, timeCost, parallelism, salt, key, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func decodePHC(encoded string) (memory, timeCost uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2id hash format")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	var p uint32
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &p); err != nil || p == 0 || p > 255 {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 parameters")
	}
	parallelism = uint8(p)

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 salt")
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 key")
	}

	return memory, timeCost, parallelism, salt, key, nil
}
