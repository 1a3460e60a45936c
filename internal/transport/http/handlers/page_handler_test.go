package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
	"github.com/ivankudzin/portfolio/internal/web"
)

func newPageDocument(t *testing.T, handler *PageHandler) *goquery.Document {
	t.Helper()

	rr := httptest.NewRecorder()
	handler.Get(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type: %q", ct)
	}
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func newRendererForTest(t *testing.T) *web.Renderer {
	t.Helper()
	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return renderer
}

func TestPageRendersSections(t *testing.T) {
	store := newContentStoreStub()
	store.add(enums.ContentTypeHero, "Showreel", "https://drive.google.com/file/d/1AbC/view", "")
	store.add(enums.ContentTypeLongForm, "Film", "https://youtu.be/dQw4w9WgXcQ", "")
	store.add(enums.ContentTypeShortForm, "Reel", "https://instagram.com/reel/Cabc/", "")
	store.add(enums.ContentTypeShortForm, "Clip", "https://cdn.example.com/clip.webm", "")

	counter := newCounterStub()
	handler := NewPageHandler(contentsvc.NewService(store, nil), newRendererForTest(t), web.Profile{OwnerName: "Jane Doe"}, counter, nil)
	doc := newPageDocument(t, handler)

	if src := doc.Find("#home iframe").AttrOr("src", ""); src != "https://drive.google.com/file/d/1AbC/preview" {
		t.Fatalf("unexpected hero src: %q", src)
	}
	if doc.Find("#work article.card").Length() != 1 {
		t.Fatalf("expected one work card")
	}
	if doc.Find("#projects article.card").Length() != 2 {
		t.Fatalf("expected two project cards")
	}
	if doc.Find("#projects video").Length() != 1 {
		t.Fatalf("expected direct file to render as video")
	}
	if doc.Find(".notice").Length() != 0 {
		t.Fatalf("healthy page must not show degraded notice")
	}

	want := map[string]int{"google_drive": 1, "youtube": 1, "instagram": 1, "direct_file": 1}
	for platform, n := range want {
		if counter.counts[platform] != n {
			t.Fatalf("unexpected count for %s: %v", platform, counter.counts)
		}
	}
}

func TestPageEmptySections(t *testing.T) {
	handler := NewPageHandler(contentsvc.NewService(newContentStoreStub(), nil), newRendererForTest(t), web.Profile{OwnerName: "Jane"}, nil, nil)
	doc := newPageDocument(t, handler)

	if doc.Find(".empty").Length() != 2 {
		t.Fatalf("expected empty state in both gallery sections")
	}
	if doc.Find("#home .hero-media").Length() != 0 {
		t.Fatalf("no hero item must render no hero media")
	}
}

func TestPageDegradesWhenStoreFails(t *testing.T) {
	store := newContentStoreStub()
	store.err = errors.New("db down")
	handler := NewPageHandler(contentsvc.NewService(store, nil), newRendererForTest(t), web.Profile{OwnerName: "Jane"}, nil, nil)
	doc := newPageDocument(t, handler)

	if doc.Find(".notice").Length() != 1 {
		t.Fatalf("expected degraded notice")
	}

	handler = NewPageHandler(nil, newRendererForTest(t), web.Profile{OwnerName: "Jane"}, nil, nil)
	doc = newPageDocument(t, handler)
	if doc.Find(".notice").Length() != 1 {
		t.Fatalf("expected degraded notice without content service")
	}
}
