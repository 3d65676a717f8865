package secret

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NewToken generates a cryptographically random 64-character hex token
// (256 bits of entropy) for verification and password-reset links.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewOTP generates a 6-digit numeric one-time passcode.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
