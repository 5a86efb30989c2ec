package model

import (
	"errors"
	"time"
)

// Role is the closed set of account roles. Authorization decisions switch
// over this type exhaustively instead of comparing raw strings.
type Role string

const (
	RoleUser     Role = "USER"
	RoleBusiness Role = "BUSINESS"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBusiness, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system. Points is the authoritative live
// balance; the point ledger is the audit trail kept consistent alongside it.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Name           string    `db:"name" json:"name"`
	Role           Role      `db:"role" json:"role"`
	PasswordHashed string    `db:"password_hashed" json:"-"` // "-" hides from JSON output
	Points         int64     `db:"points" json:"points"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// AuthUser is the authenticated identity placed in the request context by the
// bearer-token middleware.
type AuthUser struct {
	ID   int64
	Role Role
}

// RegisterRequest represents the data needed to register a new account.
// DeviceID lets the client receive its first device binding in the same call.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	DeviceID string `json:"deviceId"`
}

// LoginRequest represents the data needed to log in. A non-empty DeviceID
// rotates the binding for that device and returns fresh credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User         *User              `json:"user"`
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	ExpiresIn    int                `json:"expires_in"`
	Device       *DeviceCredentials `json:"device,omitempty"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when attempting to register a taken email
	ErrEmailExists = errors.New("email already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInsufficientPoints is returned when a debit would drive the balance negative
	ErrInsufficientPoints = errors.New("insufficient points")
)
