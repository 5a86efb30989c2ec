package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"greencycle/internal/model"
)

// Postgres error code for unique_violation.
const pgUniqueViolation = "23505"

type redemptionRepository struct {
	db *sqlx.DB
}

func NewRedemptionRepository(db *sqlx.DB) RedemptionRepository {
	return &redemptionRepository{db: db}
}

// Create inserts an ISSUED redemption. Unique-index violations are mapped to
// sentinels so the service can distinguish an idempotency-key race (return
// the winner's row) from a code collision (regenerate and retry).
func (r *redemptionRepository) Create(ctx context.Context, tx *sqlx.Tx, red *model.Redemption) error {
	query := `
		INSERT INTO redemptions (user_id, coupon_id, code, idempotency_key, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		red.UserID,
		red.CouponID,
		red.Code,
		red.IdempotencyKey,
		red.Status,
	).Scan(&red.ID, &red.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			switch pqErr.Constraint {
			case "uq_redemptions_user_key":
				return model.ErrIdempotencyConflict
			case "uq_redemptions_code":
				return model.ErrCodeCollision
			}
		}
		return fmt.Errorf("failed to insert redemption: %w", err)
	}
	return nil
}

func (r *redemptionRepository) GetByUserAndKey(ctx context.Context, userID int64, idempotencyKey string) (*model.Redemption, error) {
	query := `
		SELECT id, user_id, coupon_id, code, idempotency_key, status, used_at, used_by_business_id, created_at
		FROM redemptions
		WHERE user_id = $1 AND idempotency_key = $2
	`
	var red model.Redemption
	err := r.db.GetContext(ctx, &red, query, userID, idempotencyKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("failed to get redemption by idempotency key: %w", err)
	}
	return &red, nil
}

func (r *redemptionRepository) GetByCode(ctx context.Context, code string) (*model.Redemption, error) {
	query := `
		SELECT id, user_id, coupon_id, code, idempotency_key, status, used_at, used_by_business_id, created_at
		FROM redemptions
		WHERE code = $1
	`
	var red model.Redemption
	err := r.db.GetContext(ctx, &red, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("failed to get redemption by code: %w", err)
	}
	return &red, nil
}

// MarkUsed is guarded on status so the ISSUED -> USED transition fires at
// most once; the losing side of a concurrent consume sees zero rows.
func (r *redemptionRepository) MarkUsed(ctx context.Context, id int64, businessID int64, usedAt time.Time) (bool, error) {
	query := `
		UPDATE redemptions
		SET status = $1, used_at = $2, used_by_business_id = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, model.RedemptionUsed, usedAt, businessID, id, model.RedemptionIssued)
	if err != nil {
		return false, fmt.Errorf("failed to mark redemption used: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read mark-used result: %w", err)
	}
	return affected == 1, nil
}
