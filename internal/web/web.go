package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ivankudzin/portfolio/internal/domain/model"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const EmptySectionText = "No content available yet."

type Link struct {
	Label string
	URL   string
}

type JourneyItem struct {
	Label string
	Value string
	Link  string
}

type JourneyBox struct {
	Title string
	Items []JourneyItem
}

// Profile is the static part of the page: who the site belongs to and how to
// reach them.
type Profile struct {
	OwnerName    string
	Tagline      string
	Story        []string
	ContactEmail string
	Socials      []Link
	Journey      []JourneyBox
}

// Card is one gallery entry ready for the template.
type Card struct {
	ID       string
	Title    string
	Preview  contentsvc.PreviewKind
	Platform string
	Player   template.HTML
	ImageURL string
}

type Section struct {
	ID    string
	Title string
	Cards []Card
}

type Page struct {
	Profile  Profile
	Hero     *Card
	Sections []Section
	Year     int
	// Degraded is set when content could not be loaded.
	Degraded bool
}

type navLink struct {
	Href  string
	Label string
}

var navigation = []navLink{
	{Href: "#home", Label: "Home"},
	{Href: "#work", Label: "Work"},
	{Href: "#projects", Label: "Projects"},
	{Href: "#journey", Label: "Journey"},
	{Href: "#contact", Label: "Contact"},
}

func NewCard(item model.ContentItem) Card {
	preview := contentsvc.PreviewOf(item)
	card := Card{
		ID:       item.ID.String(),
		Title:    item.Title,
		Preview:  preview.Kind,
		ImageURL: preview.ImageURL,
	}
	if preview.Media != nil {
		card.Platform = string(preview.Media.Platform)
		card.Player = preview.Player(item.Title)
	}
	return card
}

func NewCards(items []model.ContentItem) []Card {
	cards := make([]Card, 0, len(items))
	for _, item := range items {
		cards = append(cards, NewCard(item))
	}
	return cards
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("page").Funcs(template.FuncMap{
		"nav":      func() []navLink { return navigation },
		"initials": initials,
		"empty":    func() string { return EmptySectionText },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (r *Renderer) Render(w io.Writer, page Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page.html.tmpl", page); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func initials(name string) string {
	letters := make([]rune, 0, 2)
	for _, part := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(part)
		letters = append(letters, unicode.ToUpper(r))
		if len(letters) == 2 {
			break
		}
	}
	return string(letters)
}
