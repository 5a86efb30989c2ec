package model

import (
	"errors"
	"time"
)

// DeviceBinding ties an installed client instance to a per-device HMAC
// secret. At most one binding exists per (user, device); re-issuing replaces
// the prior secret for that device with no grace period.
type DeviceBinding struct {
	ID        int64     `db:"id" json:"-"`
	UserID    int64     `db:"user_id" json:"-"`
	DeviceID  string    `db:"device_id" json:"device_id"`
	ClientID  string    `db:"client_id" json:"client_id"`
	Secret    string    `db:"secret" json:"-"` // never serialized after issuance
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DeviceCredentials is the one-time response to secret issuance. The secret
// cannot be recovered later, only re-rotated.
type DeviceCredentials struct {
	DeviceID string `json:"deviceId"`
	ClientID string `json:"clientId"`
	Secret   string `json:"secret"`
}

// RotateDeviceRequest is the body of the explicit rotation endpoint.
type RotateDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

// ErrDeviceNotBound is returned when no binding matches the presented
// device and client identifiers for the authenticated user.
var ErrDeviceNotBound = errors.New("device not bound")
