package service

import (
	"context"
	"time"

	"greencycle/internal/model"
	"greencycle/internal/repository"
)

// couponListLimit caps the public listing.
const couponListLimit = 100

// CouponService exposes the read side of coupons. Creation and editing are
// handled by the business ad-management surface, not here.
type CouponService struct {
	repo repository.CouponRepository
}

func NewCouponService(repo repository.CouponRepository) *CouponService {
	return &CouponService{repo: repo}
}

// ListAvailable returns active, in-stock coupons currently inside their
// validity window.
func (s *CouponService) ListAvailable(ctx context.Context) ([]model.Coupon, error) {
	coupons, err := s.repo.ListAvailable(ctx, time.Now(), couponListLimit)
	if err != nil {
		return nil, err
	}
	if coupons == nil {
		coupons = []model.Coupon{}
	}
	return coupons, nil
}
