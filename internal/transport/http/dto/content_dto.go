package dto

import "time"

type MediaReferenceResponse struct {
	Platform   string `json:"platform"`
	Label      string `json:"label"`
	Identifier string `json:"identifier,omitempty"`
	RenderURL  string `json:"render_url"`
}

type ContentItemResponse struct {
	ID           string                  `json:"id"`
	Type         string                  `json:"type"`
	Title        string                  `json:"title"`
	EmbedURL     *string                 `json:"embed_url"`
	ImageURL     *string                 `json:"image_url"`
	DisplayOrder int                     `json:"display_order"`
	Preview      string                  `json:"preview"`
	Media        *MediaReferenceResponse `json:"media,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

type ContentListResponse struct {
	Type  string                `json:"type"`
	Items []ContentItemResponse `json:"items"`
}

type CreateContentRequest struct {
	Type     string `json:"type" validate:"required,oneof=hero short_form long_form"`
	Title    string `json:"title" validate:"max=200"`
	URL      string `json:"url" validate:"max=2048"`
	ImageURL string `json:"image_url" validate:"max=2048"`
}

type UpdateContentRequest struct {
	Title string `json:"title" validate:"max=200"`
	URL   string `json:"url" validate:"max=2048"`
}

type ReorderContentRequest struct {
	Type string   `json:"type" validate:"required,oneof=hero short_form long_form"`
	IDs  []string `json:"ids" validate:"required,dive,uuid"`
}

type EmbedResponse struct {
	URL        string `json:"url"`
	Platform   string `json:"platform"`
	Label      string `json:"label"`
	Identifier string `json:"identifier,omitempty"`
	RenderURL  string `json:"render_url"`
	HTML       string `json:"html"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
