package content

import (
	"html/template"

	"github.com/ivankudzin/portfolio/internal/domain/embed"
	"github.com/ivankudzin/portfolio/internal/domain/model"
)

type PreviewKind string

const (
	PreviewEmbed PreviewKind = "embed"
	PreviewImage PreviewKind = "image"
	PreviewNone  PreviewKind = "none"
)

// Preview says how an item is displayed: its embed when it has one, otherwise
// its image, otherwise a placeholder.
type Preview struct {
	Kind     PreviewKind
	Media    *embed.MediaReference
	ImageURL string
}

func PreviewOf(item model.ContentItem) Preview {
	if raw := item.Embed(); raw != "" {
		ref := embed.Classify(raw)
		return Preview{Kind: PreviewEmbed, Media: &ref}
	}
	if image := item.Image(); image != "" {
		return Preview{Kind: PreviewImage, ImageURL: image}
	}
	return Preview{Kind: PreviewNone}
}

// Player is the embed markup for PreviewEmbed and empty otherwise.
func (p Preview) Player(title string) template.HTML {
	if p.Kind != PreviewEmbed || p.Media == nil {
		return ""
	}
	return embed.Render(*p.Media, title)
}
