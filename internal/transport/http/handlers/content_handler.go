package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	"github.com/ivankudzin/portfolio/internal/domain/model"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
	"github.com/ivankudzin/portfolio/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/portfolio/internal/transport/http/errors"
)

type ContentHandler struct {
	service *contentsvc.Service
	logger  *zap.Logger
}

func NewContentHandler(service *contentsvc.Service, logger *zap.Logger) *ContentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentHandler{service: service, logger: logger}
}

// List is the public, cached section listing.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "CONTENT_UNAVAILABLE", "content is temporarily unavailable")
		return
	}

	contentType, ok := enums.ParseContentType(strings.TrimSpace(r.URL.Query().Get("type")))
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "type must be one of hero, short_form, long_form")
		return
	}

	items, err := h.service.Section(r.Context(), contentType)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, toContentList(contentType, items))
}

// AdminList reads straight from the store so editors see their changes.
func (h *ContentHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "CONTENT_UNAVAILABLE", "content is temporarily unavailable")
		return
	}

	rawType := r.URL.Query().Get("type")
	items, err := h.service.List(r.Context(), rawType)
	if err != nil {
		h.handleError(w, err)
		return
	}
	contentType, _ := enums.ParseContentType(strings.TrimSpace(rawType))
	httperrors.Write(w, http.StatusOK, toContentList(contentType, items))
}

func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "CONTENT_UNAVAILABLE", "content is temporarily unavailable")
		return
	}

	var req dto.CreateContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.service.Add(r.Context(), contentsvc.AddInput{
		Type:     req.Type,
		Title:    req.Title,
		URL:      req.URL,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusCreated, toContentItem(item))
}

func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "CONTENT_UNAVAILABLE", "content is temporarily unavailable")
		return
	}

	id, ok := contentID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.service.Edit(r.Context(), id, contentsvc.EditInput{Title: req.Title, URL: req.URL})
	if err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, toContentItem(item))
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "CONTENT_UNAVAILABLE", "content is temporarily unavailable")
		return
	}

	id, ok := contentID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContentHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "CONTENT_UNAVAILABLE", "content is temporarily unavailable")
		return
	}

	var req dto.ReorderContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "ids must be UUIDs")
			return
		}
		ids = append(ids, id)
	}

	if err := h.service.Reorder(r.Context(), req.Type, ids); err != nil {
		h.handleError(w, err)
		return
	}

	items, err := h.service.List(r.Context(), req.Type)
	if err != nil {
		h.handleError(w, err)
		return
	}
	contentType, _ := enums.ParseContentType(req.Type)
	httperrors.Write(w, http.StatusOK, toContentList(contentType, items))
}

func (h *ContentHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contentsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", errorDetail(err, contentsvc.ErrValidation))
	case errors.Is(err, contentsvc.ErrNotFound):
		writeNotFound(w, "CONTENT_NOT_FOUND", "content item not found")
	case errors.Is(err, contentsvc.ErrOrderMismatch):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "ORDER_MISMATCH",
			Message: contentsvc.ErrOrderMismatch.Error(),
		})
	default:
		h.logger.Error("content request failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "content operation failed")
	}
}

func contentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func toContentList(contentType enums.ContentType, items []model.ContentItem) dto.ContentListResponse {
	out := dto.ContentListResponse{Type: string(contentType), Items: make([]dto.ContentItemResponse, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, toContentItem(item))
	}
	return out
}

func toContentItem(item model.ContentItem) dto.ContentItemResponse {
	preview := contentsvc.PreviewOf(item)
	resp := dto.ContentItemResponse{
		ID:           item.ID.String(),
		Type:         string(item.Type),
		Title:        item.Title,
		EmbedURL:     item.EmbedURL,
		ImageURL:     item.ImageURL,
		DisplayOrder: item.DisplayOrder,
		Preview:      string(preview.Kind),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	if preview.Media != nil {
		resp.Media = &dto.MediaReferenceResponse{
			Platform:   string(preview.Media.Platform),
			Label:      preview.Media.Platform.Label(),
			Identifier: preview.Media.Identifier,
			RenderURL:  preview.Media.RenderURL,
		}
	}
	return resp
}
