package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
)

// Shared mock repositories for the service tests. Each mock exposes
// function fields so individual tests can script behavior, plus call
// counters for the assertions that matter (points debited once, ledger
// appended once, and so on). The transactional mocks accept the *sqlx.Tx
// and ignore it; the fake TxManager below passes nil.

type fakeTxManager struct {
	calls  int
	failOn error // returned instead of running fn, when set
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	m.calls++
	if m.failOn != nil {
		return m.failOn
	}
	return fn(nil)
}

type mockUserRepository struct {
	createFn        func(ctx context.Context, user *model.User) error
	getByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	existsByEmailFn func(ctx context.Context, email string) (bool, error)
	debitPointsFn   func(ctx context.Context, userID, amount int64) error
	creditPointsFn  func(ctx context.Context, userID, amount int64) error

	debitCalls  []int64 // amounts, in order
	creditCalls []int64
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepository) DebitPoints(ctx context.Context, tx *sqlx.Tx, userID, amount int64) error {
	m.debitCalls = append(m.debitCalls, amount)
	if m.debitPointsFn != nil {
		return m.debitPointsFn(ctx, userID, amount)
	}
	return nil
}

func (m *mockUserRepository) CreditPoints(ctx context.Context, tx *sqlx.Tx, userID, amount int64) error {
	m.creditCalls = append(m.creditCalls, amount)
	if m.creditPointsFn != nil {
		return m.creditPointsFn(ctx, userID, amount)
	}
	return nil
}

type mockDeviceBindingRepository struct {
	upsertFn func(ctx context.Context, binding *model.DeviceBinding) error
	getFn    func(ctx context.Context, userID int64, deviceID string) (*model.DeviceBinding, error)

	upserts []model.DeviceBinding
}

func (m *mockDeviceBindingRepository) Upsert(ctx context.Context, binding *model.DeviceBinding) error {
	m.upserts = append(m.upserts, *binding)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, binding)
	}
	return nil
}

func (m *mockDeviceBindingRepository) Get(ctx context.Context, userID int64, deviceID string) (*model.DeviceBinding, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, deviceID)
	}
	return nil, model.ErrDeviceNotBound
}

type mockCouponRepository struct {
	getByIDFn        func(ctx context.Context, id int64) (*model.Coupon, error)
	listAvailableFn  func(ctx context.Context, now time.Time, limit int) ([]model.Coupon, error)
	decrementStockFn func(ctx context.Context, couponID int64, now time.Time) (*model.Coupon, error)

	decrementCalls int
}

func (m *mockCouponRepository) GetByID(ctx context.Context, id int64) (*model.Coupon, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrCouponNotFound
}

func (m *mockCouponRepository) ListAvailable(ctx context.Context, now time.Time, limit int) ([]model.Coupon, error) {
	if m.listAvailableFn != nil {
		return m.listAvailableFn(ctx, now, limit)
	}
	return nil, nil
}

func (m *mockCouponRepository) DecrementStock(ctx context.Context, tx *sqlx.Tx, couponID int64, now time.Time) (*model.Coupon, error) {
	m.decrementCalls++
	if m.decrementStockFn != nil {
		return m.decrementStockFn(ctx, couponID, now)
	}
	return nil, model.ErrCouponNotFound
}

type mockRedemptionRepository struct {
	createFn          func(ctx context.Context, redemption *model.Redemption) error
	getByUserAndKeyFn func(ctx context.Context, userID int64, idempotencyKey string) (*model.Redemption, error)
	getByCodeFn       func(ctx context.Context, code string) (*model.Redemption, error)
	markUsedFn        func(ctx context.Context, id int64, businessID int64, usedAt time.Time) (bool, error)

	createCalls   int
	markUsedCalls int
}

func (m *mockRedemptionRepository) Create(ctx context.Context, tx *sqlx.Tx, redemption *model.Redemption) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, redemption)
	}
	redemption.ID = int64(m.createCalls)
	return nil
}

func (m *mockRedemptionRepository) GetByUserAndKey(ctx context.Context, userID int64, idempotencyKey string) (*model.Redemption, error) {
	if m.getByUserAndKeyFn != nil {
		return m.getByUserAndKeyFn(ctx, userID, idempotencyKey)
	}
	return nil, model.ErrRedemptionNotFound
}

func (m *mockRedemptionRepository) GetByCode(ctx context.Context, code string) (*model.Redemption, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, model.ErrRedemptionNotFound
}

func (m *mockRedemptionRepository) MarkUsed(ctx context.Context, id int64, businessID int64, usedAt time.Time) (bool, error) {
	m.markUsedCalls++
	if m.markUsedFn != nil {
		return m.markUsedFn(ctx, id, businessID, usedAt)
	}
	return true, nil
}

type mockLedgerRepository struct {
	createFn       func(ctx context.Context, entry *model.PointLedgerEntry) error
	recentByUserFn func(ctx context.Context, userID int64, limit int) ([]model.PointLedgerEntry, error)

	entries []model.PointLedgerEntry
}

func (m *mockLedgerRepository) Create(ctx context.Context, tx *sqlx.Tx, entry *model.PointLedgerEntry) error {
	m.entries = append(m.entries, *entry)
	if m.createFn != nil {
		return m.createFn(ctx, entry)
	}
	return nil
}

func (m *mockLedgerRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.PointLedgerEntry, error) {
	if m.recentByUserFn != nil {
		return m.recentByUserFn(ctx, userID, limit)
	}
	return nil, nil
}

type mockWasteRepository struct {
	createFn  func(ctx context.Context, submission *model.WasteSubmission) error
	getByIDFn func(ctx context.Context, id int64) (*model.WasteSubmission, error)
	reviewFn  func(ctx context.Context, id int64, status model.WasteStatus, awardedPoints, reviewerID int64, reviewedAt time.Time) (bool, error)

	reviewCalls int
}

func (m *mockWasteRepository) Create(ctx context.Context, submission *model.WasteSubmission) error {
	if m.createFn != nil {
		return m.createFn(ctx, submission)
	}
	submission.ID = 1
	return nil
}

func (m *mockWasteRepository) GetByID(ctx context.Context, id int64) (*model.WasteSubmission, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrWasteNotFound
}

func (m *mockWasteRepository) Review(ctx context.Context, tx *sqlx.Tx, id int64, status model.WasteStatus, awardedPoints, reviewerID int64, reviewedAt time.Time) (bool, error) {
	m.reviewCalls++
	if m.reviewFn != nil {
		return m.reviewFn(ctx, id, status, awardedPoints, reviewerID, reviewedAt)
	}
	return true, nil
}
