package utils

import (
	"crypto/rand"
	"math/big"
	"time"
)

// OTPValidity is how long an emailed sign-in or reset code stays usable.
const OTPValidity = 10 * time.Minute

// MaxOTPAttempts is how many wrong guesses burn the current code.
const MaxOTPAttempts = 5

// GenerateOTP returns a 6-digit numeric code.
func GenerateOTP() (string, error) {
	const digits = "0123456789"
	otp := make([]byte, 6)
	for i := range otp {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		otp[i] = digits[n.Int64()]
	}
	return string(otp), nil
}

// OTPExpired reports whether a code generated at generatedAt is no longer valid at now.
func OTPExpired(generatedAt *time.Time, now time.Time) bool {
	return generatedAt == nil || now.After(generatedAt.Add(OTPValidity))
}
