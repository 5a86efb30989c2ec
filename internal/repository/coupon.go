package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
)

type couponRepository struct {
	db *sqlx.DB
}

func NewCouponRepository(db *sqlx.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) GetByID(ctx context.Context, id int64) (*model.Coupon, error) {
	query := `
		SELECT id, business_id, title, description, points_cost, stock, is_active,
		       valid_from, valid_to, created_at, updated_at
		FROM coupons
		WHERE id = $1
	`
	var c model.Coupon
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon by id: %w", err)
	}
	return &c, nil
}

func (r *couponRepository) ListAvailable(ctx context.Context, now time.Time, limit int) ([]model.Coupon, error) {
	query := `
		SELECT id, business_id, title, description, points_cost, stock, is_active,
		       valid_from, valid_to, created_at, updated_at
		FROM coupons
		WHERE is_active AND stock > 0
		  AND (valid_from IS NULL OR valid_from <= $1)
		  AND (valid_to IS NULL OR valid_to >= $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	var coupons []model.Coupon
	err := r.db.SelectContext(ctx, &coupons, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// DecrementStock guards the update with the full availability predicate, so
// concurrent redemptions serialize on the row and stock can never pass zero.
func (r *couponRepository) DecrementStock(ctx context.Context, tx *sqlx.Tx, couponID int64, now time.Time) (*model.Coupon, error) {
	query := `
		UPDATE coupons
		SET stock = stock - 1, updated_at = NOW()
		WHERE id = $1 AND is_active AND stock > 0
		  AND (valid_from IS NULL OR valid_from <= $2)
		  AND (valid_to IS NULL OR valid_to >= $2)
		RETURNING id, business_id, title, description, points_cost, stock, is_active,
		          valid_from, valid_to, created_at, updated_at
	`
	var c model.Coupon
	err := tx.GetContext(ctx, &c, query, couponID, now)
	if err != nil {
		if err == sql.ErrNoRows {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM coupons WHERE id = $1)`, couponID); err != nil {
				return nil, fmt.Errorf("failed to check coupon existence: %w", err)
			}
			if !exists {
				return nil, model.ErrCouponNotFound
			}
			return nil, model.ErrCouponUnavailable
		}
		return nil, fmt.Errorf("failed to decrement coupon stock: %w", err)
	}
	return &c, nil
}
