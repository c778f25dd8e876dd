package utils

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const OTPLength = 6

// GenerateOTP returns a zero-padded numeric one-time code. A nil reader uses
// crypto/rand.
func GenerateOTP(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}
