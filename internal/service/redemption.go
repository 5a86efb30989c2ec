package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
	"greencycle/internal/repository"
	"greencycle/internal/signing"
)

// codeInsertAttempts bounds retries when a generated redemption code hits
// the unique index. At ~49 bits of code entropy a single retry is already
// paranoia.
const codeInsertAttempts = 3

// RedemptionService drives the coupon redemption state machine:
// no-redemption-exists -> ISSUED -> USED. The stock decrement, point debit,
// redemption insert and ledger append ride one transaction, so partial
// states are never observable.
type RedemptionService struct {
	tx             repository.TxManager
	userRepo       repository.UserRepository
	couponRepo     repository.CouponRepository
	redemptionRepo repository.RedemptionRepository
	ledgerRepo     repository.LedgerRepository

	// now is overridable in tests.
	now func() time.Time
}

func NewRedemptionService(
	tx repository.TxManager,
	userRepo repository.UserRepository,
	couponRepo repository.CouponRepository,
	redemptionRepo repository.RedemptionRepository,
	ledgerRepo repository.LedgerRepository,
) *RedemptionService {
	return &RedemptionService{
		tx:             tx,
		userRepo:       userRepo,
		couponRepo:     couponRepo,
		redemptionRepo: redemptionRepo,
		ledgerRepo:     ledgerRepo,
		now:            time.Now,
	}
}

// Redeem issues a redemption for (user, coupon). A retried call with the
// same idempotency key returns the original result without touching balance
// or stock, which is what makes client retries after a timeout safe.
func (s *RedemptionService) Redeem(ctx context.Context, userID, couponID int64, idempotencyKey string) (*model.RedeemResult, error) {
	existing, err := s.redemptionRepo.GetByUserAndKey(ctx, userID, idempotencyKey)
	if err == nil {
		return replayResult(existing), nil
	}
	if !errors.Is(err, model.ErrRedemptionNotFound) {
		return nil, err
	}

	red, err := s.redeemTx(ctx, userID, couponID, idempotencyKey)
	if errors.Is(err, model.ErrIdempotencyConflict) {
		// A concurrent request with the same key committed first; converge
		// on its result.
		winner, err := s.redemptionRepo.GetByUserAndKey(ctx, userID, idempotencyKey)
		if err != nil {
			return nil, err
		}
		return replayResult(winner), nil
	}
	if err != nil {
		return nil, err
	}

	return &model.RedeemResult{
		RedemptionID: red.ID,
		Code:         red.Code,
		Status:       red.Status,
	}, nil
}

func (s *RedemptionService) redeemTx(ctx context.Context, userID, couponID int64, idempotencyKey string) (*model.Redemption, error) {
	var red *model.Redemption

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		coupon, err := s.couponRepo.DecrementStock(ctx, tx, couponID, s.now())
		if err != nil {
			return err
		}

		if err := s.userRepo.DebitPoints(ctx, tx, userID, coupon.PointsCost); err != nil {
			return err
		}

		red, err = s.insertWithFreshCode(ctx, tx, userID, coupon.ID, idempotencyKey)
		if err != nil {
			return err
		}

		entry := &model.PointLedgerEntry{
			UserID: userID,
			Type:   model.LedgerRedeem,
			Amount: coupon.PointsCost,
			Note:   fmt.Sprintf("Redeem %s", coupon.Title),
			Ref:    strconv.FormatInt(red.ID, 10),
		}
		return s.ledgerRepo.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return red, nil
}

func (s *RedemptionService) insertWithFreshCode(ctx context.Context, tx *sqlx.Tx, userID, couponID int64, idempotencyKey string) (*model.Redemption, error) {
	for attempt := 0; attempt < codeInsertAttempts; attempt++ {
		code, err := signing.NewRedemptionCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate redemption code: %w", err)
		}

		red := &model.Redemption{
			UserID:         userID,
			CouponID:       couponID,
			Code:           code,
			IdempotencyKey: idempotencyKey,
			Status:         model.RedemptionIssued,
		}
		err = s.redemptionRepo.Create(ctx, tx, red)
		if errors.Is(err, model.ErrCodeCollision) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return red, nil
	}
	return nil, fmt.Errorf("failed to insert redemption: %w", model.ErrCodeCollision)
}

// VerifyAndUse consumes an issued redemption by its code. A business may
// only consume redemptions of its own coupons; an admin may consume any.
// The transition is one-shot: a second call with the same code fails with
// the same invalid-or-already-used error.
func (s *RedemptionService) VerifyAndUse(ctx context.Context, code string, actor model.AuthUser) (*model.VerifyResult, error) {
	red, err := s.redemptionRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrRedemptionNotFound) {
			// Unknown code and used code are indistinguishable to the caller.
			return nil, model.ErrRedemptionUnavailable
		}
		return nil, err
	}
	if red.Status != model.RedemptionIssued {
		return nil, model.ErrRedemptionUnavailable
	}

	coupon, err := s.couponRepo.GetByID(ctx, red.CouponID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleAdmin:
		// May consume any coupon.
	case model.RoleBusiness:
		if actor.ID != coupon.BusinessID {
			return nil, model.ErrNotYourCoupon
		}
	case model.RoleUser:
		return nil, model.ErrNotYourCoupon
	default:
		return nil, model.ErrNotYourCoupon
	}

	ok, err := s.redemptionRepo.MarkUsed(ctx, red.ID, coupon.BusinessID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrRedemptionUnavailable
	}

	return &model.VerifyResult{
		OK:           true,
		RedemptionID: red.ID,
		Status:       model.RedemptionUsed,
	}, nil
}

func replayResult(red *model.Redemption) *model.RedeemResult {
	return &model.RedeemResult{
		RedemptionID: red.ID,
		Code:         red.Code,
		Status:       red.Status,
		Replayed:     true,
	}
}
