package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
	"github.com/ivankudzin/portfolio/internal/web"
)

type pageSection struct {
	id          string
	title       string
	contentType enums.ContentType
}

var pageSections = []pageSection{
	{id: "work", title: "Featured work", contentType: enums.ContentTypeLongForm},
	{id: "projects", title: "Projects", contentType: enums.ContentTypeShortForm},
}

// PageHandler serves the public portfolio. Content failures degrade the page
// instead of failing it.
type PageHandler struct {
	content  *contentsvc.Service
	renderer *web.Renderer
	profile  web.Profile
	counter  ClassificationCounter
	logger   *zap.Logger
	now      func() time.Time
}

func NewPageHandler(content *contentsvc.Service, renderer *web.Renderer, profile web.Profile, counter ClassificationCounter, logger *zap.Logger) *PageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageHandler{
		content:  content,
		renderer: renderer,
		profile:  profile,
		counter:  counterOrNop(counter),
		logger:   logger,
		now:      time.Now,
	}
}

func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	page := web.Page{
		Profile: h.profile,
		Year:    h.now().Year(),
	}

	if h.content == nil {
		page.Degraded = true
	} else {
		hero, ok, err := h.content.Hero(r.Context())
		switch {
		case err != nil:
			h.logger.Warn("load hero failed", zap.Error(err))
			page.Degraded = true
		case ok:
			card := web.NewCard(hero)
			h.count(card)
			page.Hero = &card
		}
	}

	for _, section := range pageSections {
		out := web.Section{ID: section.id, Title: section.title}
		if h.content != nil {
			items, err := h.content.Section(r.Context(), section.contentType)
			if err != nil {
				h.logger.Warn("load section failed", zap.String("section", section.id), zap.Error(err))
				page.Degraded = true
			} else {
				out.Cards = web.NewCards(items)
				for _, card := range out.Cards {
					h.count(card)
				}
			}
		}
		page.Sections = append(page.Sections, out)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := h.renderer.Render(w, page); err != nil {
		h.logger.Error("render page failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *PageHandler) count(card web.Card) {
	if card.Platform != "" {
		h.counter.CountClassification(card.Platform)
	}
}
