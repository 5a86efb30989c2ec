package signing

import (
	"crypto/rand"
	"fmt"
)

// Alphabets for generated identifiers. The redemption code alphabet drops
// ambiguous glyphs (0/O, 1/I/L) since codes are read out at a point of sale.
const (
	idAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
)

// Lengths chosen so guessing is infeasible: a 32-char secret over 62 symbols
// is ~190 bits; a 10-char code over 31 symbols is ~49 bits, and uniqueness
// is additionally enforced by the store's unique index.
const (
	ClientIDLen       = 8
	DeviceSecretLen   = 32
	RedemptionCodeLen = 10
)

func randomString(alphabet string, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// NewClientID returns a fresh public device-client identifier.
func NewClientID() (string, error) {
	return randomString(idAlphabet, ClientIDLen)
}

// NewDeviceSecret returns a fresh high-entropy device secret. It is
// transmitted exactly once, at issuance.
func NewDeviceSecret() (string, error) {
	return randomString(idAlphabet, DeviceSecretLen)
}

// NewRedemptionCode returns a fresh point-of-sale redemption code.
func NewRedemptionCode() (string, error) {
	return randomString(codeAlphabet, RedemptionCodeLen)
}
