package handlers

import (
	"net/http"

	"github.com/ivankudzin/portfolio/internal/domain/embed"
	"github.com/ivankudzin/portfolio/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/portfolio/internal/transport/http/errors"
)

const maxEmbedURLLength = 2048

type EmbedHandler struct {
	counter ClassificationCounter
}

func NewEmbedHandler(counter ClassificationCounter) *EmbedHandler {
	return &EmbedHandler{counter: counterOrNop(counter)}
}

// Get classifies ?url= and returns the reference with its markup. With
// ?format=html only the markup fragment is written.
func (h *EmbedHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	// Any text is accepted and classified as given; what is not a link
	// resolves to the unknown platform.
	raw := query.Get("url")
	if len(raw) > maxEmbedURLLength {
		writeBadRequest(w, "VALIDATION_ERROR", "url is too long")
		return
	}

	ref := embed.Classify(raw)
	h.counter.CountClassification(string(ref.Platform))
	markup := embed.Render(ref, query.Get("title"))

	if query.Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(markup))
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EmbedResponse{
		URL:        ref.URL,
		Platform:   string(ref.Platform),
		Label:      ref.Platform.Label(),
		Identifier: ref.Identifier,
		RenderURL:  ref.RenderURL,
		HTML:       string(markup),
	})
}
