package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
)

// ContentItem is one gallery entry. EmbedURL and ImageURL are optional; the
// page shows the embed first, then the image, then a placeholder.
type ContentItem struct {
	ID           uuid.UUID         `json:"id"`
	Type         enums.ContentType `json:"type"`
	Title        string            `json:"title"`
	EmbedURL     *string           `json:"embed_url"`
	ImageURL     *string           `json:"image_url"`
	DisplayOrder int               `json:"display_order"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (c ContentItem) Embed() string {
	if c.EmbedURL == nil {
		return ""
	}
	return *c.EmbedURL
}

func (c ContentItem) Image() string {
	if c.ImageURL == nil {
		return ""
	}
	return *c.ImageURL
}
