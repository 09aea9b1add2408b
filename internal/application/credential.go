package application

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidCredentialHash         = errors.New("invalid admin token hash format")
	ErrIncompatibleCredentialVersion = errors.New("incompatible admin token hash version")
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

const argon2idPrefix = "$argon2id$"

// HashAdminToken derives an encoded argon2id hash of token.
func HashAdminToken(token string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

type decodedHash struct {
	params Argon2idParams
	salt   []byte
	sum    []byte
}

func decodeAdminHash(encoded string) (decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return decodedHash{}, ErrInvalidCredentialHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidCredentialHash, err)
	}
	if version != argon2.Version {
		return decodedHash{}, ErrIncompatibleCredentialVersion
	}

	var out decodedHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.params.Memory, &out.params.Iterations, &out.params.Parallelism); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidCredentialHash, err)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidCredentialHash, err)
	}
	if out.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidCredentialHash, err)
	}
	out.params.SaltLength = uint32(len(out.salt))
	out.params.KeyLength = uint32(len(out.sum))
	return out, nil
}

// keyDeriver matches argon2.IDKey.
type keyDeriver func(password, salt []byte, time, memory uint32, threads uint8, keyLen uint32) []byte

// AdminCredential verifies the bearer token guarding the management surface.
// The argon2id hash is checked at most until one token verifies; afterwards a
// SHA-256 digest of that token is compared in constant time.
type AdminCredential struct {
	hash decodedHash
	kdf  keyDeriver

	mu       sync.Mutex
	accepted []byte
}

// NewAdminCredential accepts either a plaintext token, which is hashed with
// params, or an already encoded argon2id hash.
func NewAdminCredential(tokenOrHash string, params Argon2idParams) (*AdminCredential, error) {
	return newAdminCredential(tokenOrHash, params, argon2.IDKey)
}

func newAdminCredential(tokenOrHash string, params Argon2idParams, kdf keyDeriver) (*AdminCredential, error) {
	value := strings.TrimSpace(tokenOrHash)
	if value == "" {
		return nil, fmt.Errorf("admin token is required")
	}
	encoded := value
	plaintext := !strings.HasPrefix(value, argon2idPrefix)
	if plaintext {
		var err error
		if encoded, err = HashAdminToken(value, params); err != nil {
			return nil, fmt.Errorf("hash admin token: %w", err)
		}
	}
	decoded, err := decodeAdminHash(encoded)
	if err != nil {
		return nil, err
	}
	cred := &AdminCredential{hash: decoded, kdf: kdf}
	if plaintext {
		cred.accepted = tokenDigest(value)
	}
	return cred, nil
}

// Verify returns ErrUnauthorized unless token matches the credential.
func (c *AdminCredential) Verify(token string) error {
	if c == nil || token == "" {
		return ErrUnauthorized
	}
	digest := tokenDigest(token)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accepted != nil {
		if subtle.ConstantTimeCompare(c.accepted, digest) == 1 {
			return nil
		}
		return ErrUnauthorized
	}

	// Only one derivation runs at a time.
	p := c.hash.params
	comparison := c.kdf([]byte(token), c.hash.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	if subtle.ConstantTimeCompare(c.hash.sum, comparison) != 1 {
		return ErrUnauthorized
	}
	c.accepted = digest
	return nil
}

func tokenDigest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
