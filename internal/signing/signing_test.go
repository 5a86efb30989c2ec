package signing

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

var hexSHA256 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestCanonical_FieldOrder(t *testing.T) {
	got := Canonical("dev-1", "client01", "abcd1234", 1717243200000, []byte(`{"couponId":"7"}`))
	want := `dev-1.client01.abcd1234.1717243200000.{"couponId":"7"}`
	if got != want {
		t.Errorf("canonical = %q, want %q", got, want)
	}
}

func TestCanonical_EmptyBody(t *testing.T) {
	withNil := Canonical("dev-1", "client01", "n", 1, nil)
	withEmpty := Canonical("dev-1", "client01", "n", 1, []byte{})
	if withNil != withEmpty {
		t.Errorf("nil and empty body canonicalize differently: %q vs %q", withNil, withEmpty)
	}
	if !strings.HasSuffix(withNil, "."+EmptyBody) {
		t.Errorf("canonical = %q, want suffix %q", withNil, "."+EmptyBody)
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	canonical := Canonical("dev-1", "client01", "nonce", 1717243200000, []byte(`{"a":1}`))
	sig := Sign("secret-key", canonical)

	if !hexSHA256.MatchString(sig) {
		t.Errorf("signature %q is not lowercase hex sha256", sig)
	}
	if !Verify("secret-key", canonical, sig) {
		t.Error("valid signature rejected")
	}
}

func TestVerify_RejectsTampering(t *testing.T) {
	canonical := Canonical("dev-1", "client01", "nonce", 1717243200000, []byte(`{"a":1}`))
	sig := Sign("secret-key", canonical)

	tampered := Canonical("dev-1", "client01", "nonce", 1717243200000, []byte(`{"a":2}`))
	if Verify("secret-key", tampered, sig) {
		t.Error("signature accepted over a modified body")
	}
	if Verify("other-secret", canonical, sig) {
		t.Error("signature accepted under a different secret")
	}
	if Verify("secret-key", canonical, strings.ToUpper(sig)) {
		t.Error("case-mangled signature accepted")
	}
}

func TestSign_KnownVector(t *testing.T) {
	// Pinned so signer and verifier cannot drift apart silently.
	got := Sign("key", "the quick brown fox")
	want := "9119dc3209b2cc822340e7ff18d47c796736f1af694ffba590d094b4d182e7e1"
	if got != want {
		t.Errorf("Sign = %s, want %s", got, want)
	}
}

func TestSigner_Headers(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	signer := NewSigner("dev-1", "client01", "secret-key")
	signer.Now = func() time.Time { return fixed }

	body := []byte(`{"couponId":"7","idempotencyKey":"key-aaa-1"}`)
	headers, err := signer.Headers(body)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if headers[HeaderDeviceID] != "dev-1" || headers[HeaderClientID] != "client01" {
		t.Errorf("identity headers wrong: %v", headers)
	}
	ts, err := strconv.ParseInt(headers[HeaderTimestamp], 10, 64)
	if err != nil {
		t.Fatalf("timestamp %q is not an integer", headers[HeaderTimestamp])
	}
	if ts != fixed.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", ts, fixed.UnixMilli())
	}

	canonical := Canonical("dev-1", "client01", headers[HeaderNonce], ts, body)
	if !Verify("secret-key", canonical, headers[HeaderSignature]) {
		t.Error("headers do not verify against their own canonical string")
	}
}

func TestSigner_RotatedSecret(t *testing.T) {
	signer := NewSigner("dev-1", "client01", "old-secret")
	headers, err := signer.Headers(nil)
	if err != nil {
		t.Fatal(err)
	}

	ts, _ := strconv.ParseInt(headers[HeaderTimestamp], 10, 64)
	canonical := Canonical("dev-1", "client01", headers[HeaderNonce], ts, nil)

	if !Verify("old-secret", canonical, headers[HeaderSignature]) {
		t.Error("signature should verify under the issuing secret")
	}
	// After rotation the server only holds the new secret.
	if Verify("new-secret", canonical, headers[HeaderSignature]) {
		t.Error("stale signature accepted under the rotated secret")
	}
}

func TestNewNonce_FormatAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		nonce, err := NewNonce()
		if err != nil {
			t.Fatal(err)
		}
		if len(nonce) != 32 || !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(nonce) {
			t.Fatalf("nonce %q is not 16 hex bytes", nonce)
		}
		if seen[nonce] {
			t.Fatalf("nonce %q repeated", nonce)
		}
		seen[nonce] = true
	}
}

func TestGeneratedTokens(t *testing.T) {
	clientID, err := NewClientID()
	if err != nil {
		t.Fatal(err)
	}
	if len(clientID) != ClientIDLen {
		t.Errorf("clientId length = %d, want %d", len(clientID), ClientIDLen)
	}

	secret, err := NewDeviceSecret()
	if err != nil {
		t.Fatal(err)
	}
	if len(secret) != DeviceSecretLen {
		t.Errorf("secret length = %d, want %d", len(secret), DeviceSecretLen)
	}

	code, err := NewRedemptionCode()
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != RedemptionCodeLen {
		t.Errorf("code length = %d, want %d", len(code), RedemptionCodeLen)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("code %q contains %q outside the ambiguity-free alphabet", code, r)
		}
	}
}
