package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"greencycle/internal/httputil"
	"greencycle/internal/model"
	"greencycle/internal/service"
	"greencycle/internal/transport/http/middleware"
)

// CouponHandler groups coupon listing, redemption and verification.
type CouponHandler struct {
	couponService     *service.CouponService
	redemptionService *service.RedemptionService
}

func NewCouponHandler(couponService *service.CouponService, redemptionService *service.RedemptionService) *CouponHandler {
	return &CouponHandler{
		couponService:     couponService,
		redemptionService: redemptionService,
	}
}

// List returns currently redeemable coupons.
// GET /coupons
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.couponService.ListAvailable(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, "Failed to list coupons")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": coupons})
}

// Redeem spends points on a coupon. Requires a valid device signature in
// addition to the bearer token. Retries with the same idempotency key return
// the original result with status 200 instead of 201.
// POST /coupons/redeem
func (h *CouponHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middleware.GetAuthUserFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	couponID, err := strconv.ParseInt(strings.TrimSpace(req.CouponID), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "couponId must be a coupon identifier")
		return
	}
	if len(req.IdempotencyKey) < model.MinIdempotencyKeyLen {
		httputil.WriteBadRequest(w, "idempotencyKey must be at least 8 characters")
		return
	}

	result, err := h.redemptionService.Redeem(r.Context(), authUser.ID, couponID, req.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCouponNotFound):
			httputil.WriteNotFound(w, "Coupon not found")
		case errors.Is(err, model.ErrCouponUnavailable):
			httputil.WriteConflict(w, "Coupon unavailable")
		case errors.Is(err, model.ErrInsufficientPoints):
			httputil.WriteConflict(w, "Insufficient points")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			httputil.WriteInternalError(w, "Failed to redeem coupon")
		}
		return
	}

	if result.Replayed {
		httputil.WriteJSON(w, http.StatusOK, result)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"redemptionId": result.RedemptionID,
		"code":         result.Code,
	})
}

// Verify consumes an issued redemption code at the point of sale.
// POST /coupons/verify  (BUSINESS or ADMIN)
func (h *CouponHandler) Verify(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middleware.GetAuthUserFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if len(req.Code) < model.MinRedemptionCodeLen {
		httputil.WriteBadRequest(w, "code must be at least 6 characters")
		return
	}

	result, err := h.redemptionService.VerifyAndUse(r.Context(), req.Code, authUser)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRedemptionUnavailable):
			httputil.WriteConflict(w, "Invalid or already used")
		case errors.Is(err, model.ErrNotYourCoupon):
			httputil.WriteForbidden(w, "Not your coupon")
		case errors.Is(err, model.ErrCouponNotFound):
			httputil.WriteNotFound(w, "Coupon not found")
		default:
			httputil.WriteInternalError(w, "Failed to verify redemption")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
