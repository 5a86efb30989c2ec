package model

import (
	"errors"
	"time"
)

// RedemptionStatus is the state of an issued redemption. ISSUED -> USED is
// the only transition; USED is terminal.
type RedemptionStatus string

const (
	RedemptionIssued RedemptionStatus = "ISSUED"
	RedemptionUsed   RedemptionStatus = "USED"
)

// Redemption records a coupon claim. The (user_id, idempotency_key) pair is
// unique so client retries converge on the original result, and the code is
// a single-use bearer token presented at the point of sale. Rows are never
// deleted.
type Redemption struct {
	ID               int64            `db:"id" json:"id"`
	UserID           int64            `db:"user_id" json:"user_id"`
	CouponID         int64            `db:"coupon_id" json:"coupon_id"`
	Code             string           `db:"code" json:"code"`
	IdempotencyKey   string           `db:"idempotency_key" json:"-"`
	Status           RedemptionStatus `db:"status" json:"status"`
	UsedAt           *time.Time       `db:"used_at" json:"used_at,omitempty"`
	UsedByBusinessID *int64           `db:"used_by_business_id" json:"used_by_business_id,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// RedeemRequest is the redeem endpoint body. CouponID arrives as a string
// per the client contract and is parsed by the handler.
type RedeemRequest struct {
	CouponID       string `json:"couponId"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// RedeemResult is what the redemption state machine returns. Replayed is
// true when an existing redemption was returned for the idempotency key.
type RedeemResult struct {
	RedemptionID int64            `json:"redemptionId"`
	Code         string           `json:"code"`
	Status       RedemptionStatus `json:"status"`
	Replayed     bool             `json:"-"`
}

// VerifyRequest is the verify endpoint body.
type VerifyRequest struct {
	Code string `json:"code"`
}

// VerifyResult is returned after a successful consume.
type VerifyResult struct {
	OK           bool             `json:"ok"`
	RedemptionID int64            `json:"redemptionId"`
	Status       RedemptionStatus `json:"status"`
}

// Minimum input lengths enforced before any state is read.
const (
	MinIdempotencyKeyLen = 8
	MinRedemptionCodeLen = 6
)

var (
	// ErrRedemptionNotFound is returned when no redemption matches a lookup
	ErrRedemptionNotFound = errors.New("redemption not found")

	// ErrRedemptionUnavailable covers both an unknown code and an already
	// used one; callers must not be able to tell the two apart
	ErrRedemptionUnavailable = errors.New("invalid or already used")

	// ErrNotYourCoupon is returned when a business tries to consume a
	// redemption of a coupon it does not own
	ErrNotYourCoupon = errors.New("not your coupon")

	// ErrIdempotencyConflict signals a concurrent insert won the
	// (user, idempotency key) unique index; the caller re-reads the winner
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	// ErrCodeCollision signals the generated redemption code hit the unique
	// index; generation is retried
	ErrCodeCollision = errors.New("redemption code collision")
)
