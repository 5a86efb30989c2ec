package handler

import (
	"errors"
	"net/http"

	"greencycle/internal/httputil"
	"greencycle/internal/model"
	"greencycle/internal/service"
	"greencycle/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadWastePhoto handles POST /media/waste/upload.
// Accepts a multipart photo, normalizes it, and stores it in R2. The
// returned url/key pair is referenced by a later waste submission.
func (h *MediaHandler) UploadWastePhoto(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.GetAuthUserFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	maxFormSize := int64(model.MaxWastePhotoBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Photo exceeds 8MB limit")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		httputil.WriteBadRequest(w, "photo file is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadWastePhoto(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Photo exceeds 8MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, webp")
		default:
			httputil.WriteInternalError(w, "Failed to upload photo")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, upload)
}
