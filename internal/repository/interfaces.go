package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// DebitPoints decrements the balance inside tx only when the balance
	// covers amount; ErrInsufficientPoints otherwise. This guarded update is
	// the serialization point for concurrent redemptions.
	DebitPoints(ctx context.Context, tx *sqlx.Tx, userID, amount int64) error
	// CreditPoints increments the balance inside tx.
	CreditPoints(ctx context.Context, tx *sqlx.Tx, userID, amount int64) error
}

type DeviceBindingRepository interface {
	// Upsert replaces any existing binding for (user, device); the prior
	// secret for that device becomes invalid immediately.
	Upsert(ctx context.Context, binding *model.DeviceBinding) error
	Get(ctx context.Context, userID int64, deviceID string) (*model.DeviceBinding, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type CouponRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Coupon, error)
	// ListAvailable returns active, in-stock coupons whose validity window
	// contains now, newest first.
	ListAvailable(ctx context.Context, now time.Time, limit int) ([]model.Coupon, error)
	// DecrementStock takes one unit inside tx only while the coupon is
	// active, in stock, and within its validity window, returning the
	// decremented coupon. ErrCouponUnavailable when the guard fails,
	// ErrCouponNotFound when the id is unknown.
	DecrementStock(ctx context.Context, tx *sqlx.Tx, couponID int64, now time.Time) (*model.Coupon, error)
}

type RedemptionRepository interface {
	// Create inserts an ISSUED redemption inside tx. ErrIdempotencyConflict
	// when (user, idempotency key) already exists, ErrCodeCollision when the
	// code hit the unique index.
	Create(ctx context.Context, tx *sqlx.Tx, redemption *model.Redemption) error
	GetByUserAndKey(ctx context.Context, userID int64, idempotencyKey string) (*model.Redemption, error)
	GetByCode(ctx context.Context, code string) (*model.Redemption, error)
	// MarkUsed transitions ISSUED -> USED; reports false when the redemption
	// was not in ISSUED (the losing side of a concurrent consume).
	MarkUsed(ctx context.Context, id int64, businessID int64, usedAt time.Time) (bool, error)
}

type LedgerRepository interface {
	// Create appends an entry inside tx; entries are never mutated.
	Create(ctx context.Context, tx *sqlx.Tx, entry *model.PointLedgerEntry) error
	RecentByUser(ctx context.Context, userID int64, limit int) ([]model.PointLedgerEntry, error)
}

type WasteRepository interface {
	Create(ctx context.Context, submission *model.WasteSubmission) error
	GetByID(ctx context.Context, id int64) (*model.WasteSubmission, error)
	// Review transitions PENDING to the given status inside tx; reports
	// false when the submission was already reviewed.
	Review(ctx context.Context, tx *sqlx.Tx, id int64, status model.WasteStatus, awardedPoints, reviewerID int64, reviewedAt time.Time) (bool, error)
}
