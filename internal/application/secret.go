package application

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mathrand "math/rand/v2"
	"strings"
)

// Key secret format.
const (
	KeyPrefix       = "sk_live_"
	KeySecretLength = 32
	maskedKeyPrefix = "sk_live_..."
	secretAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// SecretSource names the randomness behind generated key secrets.
type SecretSource string

const (
	// SecretSourceCrypto draws from crypto/rand.
	SecretSourceCrypto SecretSource = "crypto"
	// SecretSourceMath draws from a non-cryptographic generator and exists for
	// demo deployments that must match the historical behaviour.
	SecretSourceMath SecretSource = "math"
)

// ParseSecretSource validates a configured randomness source.
func ParseSecretSource(value string) (SecretSource, error) {
	switch SecretSource(strings.ToLower(strings.TrimSpace(value))) {
	case "", SecretSourceCrypto:
		return SecretSourceCrypto, nil
	case SecretSourceMath:
		return SecretSourceMath, nil
	}
	return "", fmt.Errorf("unknown secret source %q", value)
}

// SecretGenerator produces the random part of a key secret.
type SecretGenerator func() (string, error)

// NewSecretGenerator returns a generator for source.
func NewSecretGenerator(source SecretSource) SecretGenerator {
	if source == SecretSourceMath {
		return mathSecret
	}
	return cryptoSecret
}

func cryptoSecret() (string, error) {
	max := big.NewInt(int64(len(secretAlphabet)))
	var b strings.Builder
	b.Grow(KeySecretLength)
	for i := 0; i < KeySecretLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(secretAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func mathSecret() (string, error) {
	var b strings.Builder
	b.Grow(KeySecretLength)
	for i := 0; i < KeySecretLength; i++ {
		b.WriteByte(secretAlphabet[mathrand.IntN(len(secretAlphabet))])
	}
	return b.String(), nil
}

// maskKey exposes only the last four characters of a secret.
func maskKey(key string) string {
	if len(key) <= 4 {
		return maskedKeyPrefix + key
	}
	return maskedKeyPrefix + key[len(key)-4:]
}
