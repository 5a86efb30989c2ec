package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"greencycle/internal/httputil"
	"greencycle/internal/model"
	"greencycle/internal/service"
	"greencycle/internal/transport/http/middleware"
)

// WasteHandler exposes waste submission and admin review.
type WasteHandler struct {
	wasteService *service.WasteService
}

func NewWasteHandler(wasteService *service.WasteService) *WasteHandler {
	return &WasteHandler{wasteService: wasteService}
}

// Submit records a pending waste submission. Requires a device signature:
// submissions ultimately move points, so they get the same gate as redeem.
// POST /waste/submit
func (h *WasteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middleware.GetAuthUserFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req model.SubmitWasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	submission, err := h.wasteService.Submit(r.Context(), authUser.ID, &req)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, submission)
}

// Review approves or rejects a pending submission; approval credits points.
// POST /waste/{id}/review  (ADMIN)
func (h *WasteHandler) Review(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middleware.GetAuthUserFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	submissionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid submission id")
		return
	}

	var req model.ReviewWasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	submission, err := h.wasteService.Review(r.Context(), submissionID, authUser.ID, req.Approve)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrWasteNotFound):
			httputil.WriteNotFound(w, "Waste submission not found")
		case errors.Is(err, model.ErrWasteAlreadyReviewed):
			httputil.WriteConflict(w, "Submission already reviewed")
		default:
			httputil.WriteInternalError(w, "Failed to review submission")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, submission)
}
