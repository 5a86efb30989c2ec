package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"greencycle/internal/model"
	"greencycle/internal/signing"
)

type stubSecretSource struct {
	bindings map[string]*model.DeviceBinding // keyed by deviceID
}

func (s *stubSecretSource) Get(ctx context.Context, userID int64, deviceID string) (*model.DeviceBinding, error) {
	if binding, ok := s.bindings[deviceID]; ok && binding.UserID == userID {
		return binding, nil
	}
	return nil, model.ErrDeviceNotBound
}

type memoryNonceCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryNonceCache() *memoryNonceCache {
	return &memoryNonceCache{seen: make(map[string]bool)}
}

func (c *memoryNonceCache) Remember(ctx context.Context, deviceID, nonce string, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := deviceID + ":" + nonce
	if c.seen[key] {
		return false, nil
	}
	c.seen[key] = true
	return true, nil
}

const (
	testDeviceID = "device-abc"
	testClientID = "client01"
	testSecret   = "0123456789abcdefghijklmnopqrstuv"
)

func signatureHarness(t *testing.T) (http.Handler, *memoryNonceCache) {
	t.Helper()
	source := &stubSecretSource{
		bindings: map[string]*model.DeviceBinding{
			testDeviceID: {
				UserID:   1,
				DeviceID: testDeviceID,
				ClientID: testClientID,
				Secret:   testSecret,
			},
		},
	}
	nonces := newMemoryNonceCache()

	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The handler must see the original body even though the
		// verifier consumed the stream.
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
	return SignatureMiddleware(source, nonces, 5*time.Minute)(inner), nonces
}

// signedRequest builds an authenticated request carrying valid signature
// headers for body, then lets mutate break it.
func signedRequest(t *testing.T, body []byte, mutate func(r *http.Request)) *http.Request {
	t.Helper()
	signer := signing.NewSigner(testDeviceID, testClientID, testSecret)
	headers, err := signer.Headers(body)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/coupons/redeem", bytes.NewReader(body))
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	authUser := model.AuthUser{ID: 1, Role: model.RoleUser}
	req = req.WithContext(context.WithValue(req.Context(), AuthUserKey, authUser))

	if mutate != nil {
		mutate(req)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response %q is not the error envelope: %v", rec.Body.String(), err)
	}
	return envelope.Error.Code
}

func TestSignatureMiddleware_ValidRequest(t *testing.T) {
	handler, _ := signatureHarness(t)
	body := []byte(`{"couponId":"7","idempotencyKey":"key-aaa-1"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, body, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != string(body) {
		t.Error("inner handler did not receive the original body")
	}
}

func TestSignatureMiddleware_EmptyBody(t *testing.T) {
	handler, _ := signatureHarness(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, nil, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
}

func TestSignatureMiddleware_MissingHeader(t *testing.T) {
	handler, _ := signatureHarness(t)

	for _, header := range []string{
		signing.HeaderDeviceID,
		signing.HeaderClientID,
		signing.HeaderNonce,
		signing.HeaderTimestamp,
		signing.HeaderSignature,
	} {
		t.Run(header, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, signedRequest(t, nil, func(r *http.Request) {
				r.Header.Del(header)
			}))

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if code := errorCode(t, rec); code != CodeSignatureInvalid {
				t.Errorf("code = %q, want %q", code, CodeSignatureInvalid)
			}
		})
	}
}

func TestSignatureMiddleware_TamperedBody(t *testing.T) {
	handler, _ := signatureHarness(t)
	body := []byte(`{"couponId":"7"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, body, func(r *http.Request) {
		r.Body = io.NopCloser(strings.NewReader(`{"couponId":"8"}`))
	}))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeSignatureInvalid {
		t.Errorf("code = %q, want %q", code, CodeSignatureInvalid)
	}
}

func TestSignatureMiddleware_StaleTimestamp(t *testing.T) {
	handler, _ := signatureHarness(t)

	signer := signing.NewSigner(testDeviceID, testClientID, testSecret)
	signer.Now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
	headers, err := signer.Headers(nil)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/coupons/redeem", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	req = req.WithContext(context.WithValue(req.Context(), AuthUserKey, model.AuthUser{ID: 1, Role: model.RoleUser}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Correctly signed but outside the freshness window.
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeSignatureInvalid {
		t.Errorf("code = %q, want %q", code, CodeSignatureInvalid)
	}
}

func TestSignatureMiddleware_FutureTimestampRejected(t *testing.T) {
	handler, _ := signatureHarness(t)

	signer := signing.NewSigner(testDeviceID, testClientID, testSecret)
	signer.Now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	headers, err := signer.Headers(nil)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/coupons/redeem", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	req = req.WithContext(context.WithValue(req.Context(), AuthUserKey, model.AuthUser{ID: 1, Role: model.RoleUser}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for a future timestamp", rec.Code)
	}
}

func TestSignatureMiddleware_NonceReplay(t *testing.T) {
	handler, _ := signatureHarness(t)
	body := []byte(`{"couponId":"7"}`)
	req := signedRequest(t, body, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rec.Code)
	}

	// Byte-identical replay of the captured request.
	replay := signedRequest(t, body, func(r *http.Request) {
		for _, header := range []string{
			signing.HeaderNonce,
			signing.HeaderTimestamp,
			signing.HeaderSignature,
		} {
			r.Header.Set(header, req.Header.Get(header))
		}
	})

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, replay)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay: status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeSignatureInvalid {
		t.Errorf("code = %q, want %q", code, CodeSignatureInvalid)
	}
}

func TestSignatureMiddleware_ClientIDMismatch(t *testing.T) {
	handler, _ := signatureHarness(t)

	// Signed with the right secret but claiming a different clientId.
	signer := signing.NewSigner(testDeviceID, "client99", testSecret)
	headers, err := signer.Headers(nil)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/coupons/redeem", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	req = req.WithContext(context.WithValue(req.Context(), AuthUserKey, model.AuthUser{ID: 1, Role: model.RoleUser}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSignatureMiddleware_UnboundDevice(t *testing.T) {
	handler, _ := signatureHarness(t)

	signer := signing.NewSigner("device-unknown", testClientID, testSecret)
	headers, err := signer.Headers(nil)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/coupons/redeem", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	req = req.WithContext(context.WithValue(req.Context(), AuthUserKey, model.AuthUser{ID: 1, Role: model.RoleUser}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSignatureMiddleware_RotatedSecret(t *testing.T) {
	source := &stubSecretSource{
		bindings: map[string]*model.DeviceBinding{
			testDeviceID: {
				UserID:   1,
				DeviceID: testDeviceID,
				ClientID: testClientID,
				Secret:   "rotated-secret-rotated-secret-xx",
			},
		},
	}
	handler := SignatureMiddleware(source, newMemoryNonceCache(), 5*time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	// Old secret stops working the moment the binding is replaced.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, nil, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old secret: status = %d, want 401", rec.Code)
	}

	// The new secret works.
	signer := signing.NewSigner(testDeviceID, testClientID, "rotated-secret-rotated-secret-xx")
	headers, err := signer.Headers(nil)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/coupons/redeem", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	req = req.WithContext(context.WithValue(req.Context(), AuthUserKey, model.AuthUser{ID: 1, Role: model.RoleUser}))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("new secret: status = %d, want 200", rec.Code)
	}
}

func TestSignatureMiddleware_NotAuthenticated(t *testing.T) {
	handler, _ := signatureHarness(t)

	signer := signing.NewSigner(testDeviceID, testClientID, testSecret)
	headers, err := signer.Headers(nil)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/coupons/redeem", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	// No AuthUser in context.

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSignatureMiddleware_MalformedTimestamp(t *testing.T) {
	handler, _ := signatureHarness(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, nil, func(r *http.Request) {
		r.Header.Set(signing.HeaderTimestamp, "not-a-number")
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != CodeSignatureInvalid {
		t.Errorf("code = %q, want %q", code, CodeSignatureInvalid)
	}

	// A numeric timestamp that disagrees with the signed one also fails.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, nil, func(r *http.Request) {
		r.Header.Set(signing.HeaderTimestamp, strconv.FormatInt(time.Now().UnixMilli()+1, 10))
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("shifted timestamp: status = %d, want 401", rec.Code)
	}
}
