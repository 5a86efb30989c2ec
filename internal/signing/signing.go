// Package signing implements the device-bound request signature protocol:
// a canonical string over the request identity and body, tagged with
// HMAC-SHA256 under the per-device secret.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Header names of the signed-request contract. Timestamp is epoch
// milliseconds as a string; Signature is hex HMAC-SHA256.
const (
	HeaderDeviceID  = "X-Device-Id"
	HeaderClientID  = "X-Client-Id"
	HeaderNonce     = "X-Nonce"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// EmptyBody is the canonical serialization of an absent request body. Signer
// and verifier must agree on it byte for byte.
const EmptyBody = "{}"

// Canonical builds the signing string. The field order is load-bearing:
// deviceID, clientID, nonce, millisecond timestamp, exact serialized body.
func Canonical(deviceID, clientID, nonce string, timestampMillis int64, body []byte) string {
	b := body
	if len(b) == 0 {
		b = []byte(EmptyBody)
	}
	return deviceID + "." + clientID + "." + nonce + "." + strconv.FormatInt(timestampMillis, 10) + "." + string(b)
}

// Sign computes the hex-encoded HMAC-SHA256 tag of the canonical string
// under the device secret.
func Sign(secret, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the tag and compares in constant time.
func Verify(secret, canonical, signature string) bool {
	expected := Sign(secret, canonical)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Signer builds signature headers for outgoing requests. Device identity is
// explicit construction state rather than ambient storage so the signer is
// deterministic under test.
type Signer struct {
	DeviceID string
	ClientID string
	Secret   string

	// Now returns the current time; overridable in tests.
	Now func() time.Time
}

// NewSigner returns a Signer bound to one device credential set.
func NewSigner(deviceID, clientID, secret string) *Signer {
	return &Signer{
		DeviceID: deviceID,
		ClientID: clientID,
		Secret:   secret,
		Now:      time.Now,
	}
}

// Headers generates a fresh nonce and timestamp and returns the five header
// values for a request carrying body.
func (s *Signer) Headers(body []byte) (map[string]string, error) {
	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}
	ts := s.Now().UnixMilli()
	canonical := Canonical(s.DeviceID, s.ClientID, nonce, ts, body)
	return map[string]string{
		HeaderDeviceID:  s.DeviceID,
		HeaderClientID:  s.ClientID,
		HeaderNonce:     nonce,
		HeaderTimestamp: strconv.FormatInt(ts, 10),
		HeaderSignature: Sign(s.Secret, canonical),
	}, nil
}

// NewNonce returns 16 random bytes hex-encoded; single use per request.
func NewNonce() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}
