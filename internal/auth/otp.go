package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrOTPNotFound is returned by an OTPStore when no code is stored for the
// target (never requested, expired, or already consumed).
var ErrOTPNotFound = errors.New("no OTP found for target")

// OTPStore holds hashed one-time codes keyed by delivery target (email
// address or phone number) until they are consumed or expire.
type OTPStore interface {
	Save(ctx context.Context, target, codeHash string, ttl time.Duration) error
	Get(ctx context.Context, target string) (string, error)
	Delete(ctx context.Context, target string) error
}

// GenerateOTP returns a random numeric code of the given length.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generating OTP digit: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// HashOTP hashes a code for storage. Codes never sit in Redis in the clear.
func HashOTP(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing OTP: %w", err)
	}
	return string(hash), nil
}

// CheckOTP reports whether the code matches the stored hash.
func CheckOTP(codeHash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(codeHash), []byte(code)) == nil
}
