package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// amountPrecision fixes the canonical decimal places for amounts inside
// commitment preimages. Two amounts equal at this precision produce the same
// digest regardless of in-memory representation.
const amountPrecision int32 = 6

// CanonicalAmount renders an amount in the fixed-width form used inside
// commitment preimages.
func CanonicalAmount(amount decimal.Decimal) string {
	return amount.StringFixed(amountPrecision)
}

// Commit computes the binding digest over (amount, secret).
//
// Formula: SHA256(canonical_amount + "|" + secret), hex encoded.
//
// The digest is preimage-resistant (the secret cannot be recovered from it)
// and binding (distinct pairs practically never collide). The secret is an
// opaque value owned by the bidder; Commit never validates its structure
// beyond non-emptiness.
func Commit(amount decimal.Decimal, secret string) (string, error) {
	if amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	if secret == "" {
		return "", ErrEmptySecret
	}
	data := fmt.Sprintf("%s|%s", CanonicalAmount(amount), secret)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:]), nil
}

// Verify recomputes Commit(amount, secret) and compares it against
// commitmentValue in constant time. It never returns an error: any malformed
// input, out-of-range amount, or mismatch yields false.
func Verify(amount decimal.Decimal, secret, commitmentValue string) bool {
	computed, err := Commit(amount, secret)
	if err != nil {
		return false
	}

	computedBytes, err := hex.DecodeString(computed)
	if err != nil {
		return false
	}
	claimedBytes, err := hex.DecodeString(commitmentValue)
	if err != nil {
		return false
	}
	if len(claimedBytes) != len(computedBytes) {
		return false
	}

	// Constant-time comparison: verification gates financial state.
	return subtle.ConstantTimeCompare(computedBytes, claimedBytes) == 1
}

// NewSecret generates a fresh 32-byte bidder secret, hex encoded. The caller
// owns it; losing it only forfeits the ability to reveal.
func NewSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate bidder secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
