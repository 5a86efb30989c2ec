package model

import (
	"errors"
	"time"
)

// Coupon is an offer a business funds with point pricing. Stock is only ever
// mutated by the redemption flow; creation and editing happen out of band.
type Coupon struct {
	ID          int64      `db:"id" json:"id"`
	BusinessID  int64      `db:"business_id" json:"business_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	PointsCost  int64      `db:"points_cost" json:"points_cost"`
	Stock       int64      `db:"stock" json:"stock"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	ValidFrom   *time.Time `db:"valid_from" json:"valid_from,omitempty"`
	ValidTo     *time.Time `db:"valid_to" json:"valid_to,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

var (
	// ErrCouponNotFound is returned when the coupon id is unknown
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrCouponUnavailable is returned when the coupon is inactive, out of
	// stock, or outside its validity window
	ErrCouponUnavailable = errors.New("coupon unavailable")
)
