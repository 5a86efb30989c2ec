package handler

import (
	"errors"
	"net/http"

	"greencycle/internal/httputil"
	"greencycle/internal/model"
	"greencycle/internal/service"
	"greencycle/internal/transport/http/middleware"
)

// PointsHandler exposes the balance/ledger read endpoint.
type PointsHandler struct {
	pointsService *service.PointsService
}

func NewPointsHandler(pointsService *service.PointsService) *PointsHandler {
	return &PointsHandler{pointsService: pointsService}
}

// Balance returns the live point balance and the last 50 ledger entries,
// newest first.
// GET /points/balance
func (h *PointsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middleware.GetAuthUserFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	balance, err := h.pointsService.Balance(r.Context(), authUser.ID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w, "Failed to get balance")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, balance)
}
