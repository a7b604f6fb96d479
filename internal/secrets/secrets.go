// Package secrets generates the single-use verification secrets: numeric
// OTPs and link tokens. Only the SHA-256 digest of a secret is ever stored;
// the plaintext is returned exactly once at issuance.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	// OTPLength is the number of digits in a one-time passcode.
	OTPLength = 6
	// TokenLength is the number of random bytes in a verification token.
	TokenLength = 32
	// DefaultTTL is how long an issued secret stays valid.
	DefaultTTL = 10 * time.Minute
)

// Secret is an issued verification secret. Plaintext leaves this package
// only to be delivered to the user; Hash and ExpiresAt are what gets stored.
type Secret struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// NewOTP issues a numeric one-time passcode. Each digit is drawn
// independently and uniformly from [0,9].
func NewOTP(length int, ttl time.Duration) (Secret, error) {
	if length <= 0 {
		length = OTPLength
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return Secret{}, fmt.Errorf("failed to generate otp digit: %w", err)
		}
		b.WriteByte(byte('0' + digit.Int64()))
	}

	plaintext := b.String()
	return Secret{
		Plaintext: plaintext,
		Hash:      Hash(plaintext),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// NewToken issues a random verification token rendered as a fixed-length
// hex string.
func NewToken(lengthBytes int, ttl time.Duration) (Secret, error) {
	if lengthBytes <= 0 {
		lengthBytes = TokenLength
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	bytes := make([]byte, lengthBytes)
	if _, err := rand.Read(bytes); err != nil {
		return Secret{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(bytes)
	return Secret{
		Plaintext: plaintext,
		Hash:      Hash(plaintext),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Hash computes the SHA-256 digest of a secret. A deterministic digest is
// used so stored hashes can be compared for equality without keeping the
// plaintext; it is not a password hash.
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
