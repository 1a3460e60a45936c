package model

import (
	"time"

	"github.com/google/uuid"
)

type MediaObject struct {
	ID          uuid.UUID `json:"id"`
	ObjectKey   string    `json:"object_key"`
	ThumbKey    *string   `json:"thumb_key,omitempty"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	PublicURL   string    `json:"public_url"`
	CreatedAt   time.Time `json:"created_at"`
}
