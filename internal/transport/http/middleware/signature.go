package middleware

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"greencycle/internal/cache"
	"greencycle/internal/httputil"
	"greencycle/internal/model"
	"greencycle/internal/signing"
)

// CodeSignatureInvalid is the generic code for every signature failure. The
// response never says which check failed so an attacker gets no oracle; the
// specific reason goes to the server log.
const CodeSignatureInvalid = "SIGNATURE_INVALID"

// maxSignedBodyBytes bounds how much body the verifier will buffer.
const maxSignedBodyBytes = 1 << 20 // 1MB

// DeviceSecretSource resolves the secret bound to (user, device).
type DeviceSecretSource interface {
	Get(ctx context.Context, userID int64, deviceID string) (*model.DeviceBinding, error)
}

// SignatureMiddleware verifies the device-bound HMAC on a request. It must
// run after AuthMiddleware: the binding lookup is keyed by the authenticated
// user. On success the only side effect is the nonce-cache insertion.
func SignatureMiddleware(bindings DeviceSecretSource, nonces cache.NonceCache, maxSkew time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetAuthUserFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Not authenticated")
				return
			}

			deviceID := r.Header.Get(signing.HeaderDeviceID)
			clientID := r.Header.Get(signing.HeaderClientID)
			nonce := r.Header.Get(signing.HeaderNonce)
			timestamp := r.Header.Get(signing.HeaderTimestamp)
			signature := r.Header.Get(signing.HeaderSignature)

			if deviceID == "" || clientID == "" || nonce == "" || timestamp == "" || signature == "" {
				rejectSignature(w, r, user.ID, "missing signature headers")
				return
			}

			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				rejectSignature(w, r, user.ID, "malformed timestamp")
				return
			}
			skew := time.Now().UnixMilli() - ts
			if skew < 0 {
				skew = -skew
			}
			if time.Duration(skew)*time.Millisecond > maxSkew {
				rejectSignature(w, r, user.ID, "timestamp outside freshness window")
				return
			}

			binding, err := bindings.Get(r.Context(), user.ID, deviceID)
			if err != nil {
				if err == model.ErrDeviceNotBound {
					rejectSignature(w, r, user.ID, "no device binding")
					return
				}
				httputil.WriteInternalError(w, "Failed to verify request")
				return
			}
			if binding.ClientID != clientID {
				rejectSignature(w, r, user.ID, "client id mismatch")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBodyBytes))
			if err != nil {
				httputil.WriteBadRequest(w, "Failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			canonical := signing.Canonical(deviceID, clientID, nonce, ts, body)
			if !signing.Verify(binding.Secret, canonical, signature) {
				rejectSignature(w, r, user.ID, "signature mismatch")
				return
			}

			// Signature is valid; record the nonce last so garbage requests
			// cannot fill the cache.
			firstUse, err := nonces.Remember(r.Context(), deviceID, nonce, maxSkew)
			if err != nil {
				httputil.WriteInternalError(w, "Failed to verify request")
				return
			}
			if !firstUse {
				rejectSignature(w, r, user.ID, "nonce replay")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rejectSignature logs the real reason and answers with the generic failure.
func rejectSignature(w http.ResponseWriter, r *http.Request, userID int64, reason string) {
	log.Printf("[signature] rejected %s %s user=%d: %s", r.Method, r.URL.Path, userID, reason)
	httputil.WriteUnauthorizedWithCode(w, CodeSignatureInvalid, "Invalid request signature")
}
