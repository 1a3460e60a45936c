package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/domain/model"
	mediasvc "github.com/ivankudzin/portfolio/internal/services/media"
	"github.com/ivankudzin/portfolio/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/portfolio/internal/transport/http/errors"
)

// multipart overhead allowed on top of the file itself
const multipartSlack = 1 << 20

type MediaHandler struct {
	service *mediasvc.Service
	logger  *zap.Logger
}

func NewMediaHandler(service *mediasvc.Service, logger *zap.Logger) *MediaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaHandler{service: service, logger: logger}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	limit := h.service.MaxBytes() + multipartSlack
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleError(w, mediasvc.ErrTooLarge)
			return
		}
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	obj, err := h.service.Upload(r.Context(), mediasvc.UploadInput{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, h.toResponse(obj))
}

func (h *MediaHandler) toResponse(obj model.MediaObject) dto.MediaObjectResponse {
	resp := dto.MediaObjectResponse{
		ID:          obj.ID.String(),
		Key:         obj.ObjectKey,
		URL:         obj.PublicURL,
		ContentType: obj.ContentType,
		SizeBytes:   obj.SizeBytes,
		CreatedAt:   obj.CreatedAt,
	}
	if obj.ThumbKey != nil {
		thumb := h.service.PublicURL(*obj.ThumbKey)
		resp.ThumbURL = &thumb
	}
	return resp
}

func (h *MediaHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mediasvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", errorDetail(err, mediasvc.ErrValidation))
	case errors.Is(err, mediasvc.ErrTooLarge):
		httperrors.Write(w, http.StatusRequestEntityTooLarge, httperrors.APIError{
			Code:    "FILE_TOO_LARGE",
			Message: "file exceeds the upload limit",
		})
	case errors.Is(err, mediasvc.ErrUnsupportedType):
		httperrors.Write(w, http.StatusUnsupportedMediaType, httperrors.APIError{
			Code:    "UNSUPPORTED_MEDIA_TYPE",
			Message: "only images (jpeg, png, gif, webp) and videos (mp4, webm, ogg, mov) are accepted",
		})
	case errors.Is(err, mediasvc.ErrStorageUnavailable):
		writeUnavailable(w, "STORAGE_UNAVAILABLE", "media storage is temporarily unavailable")
	default:
		h.logger.Error("media upload failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "media operation failed")
	}
}
