package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	"github.com/ivankudzin/portfolio/internal/domain/model"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("content not found")
	ErrOrderMismatch = errors.New("order must list every item of the section exactly once")
)

const defaultCacheTTL = 5 * time.Minute

// NewItem is what the store inserts; DisplayOrder is assigned by the store.
type NewItem struct {
	Type     enums.ContentType
	Title    string
	EmbedURL *string
	ImageURL *string
}

type ItemUpdate struct {
	Title    string
	EmbedURL *string
	ImageURL *string
}

type Store interface {
	ListByType(ctx context.Context, contentType enums.ContentType) ([]model.ContentItem, error)
	Get(ctx context.Context, id uuid.UUID) (model.ContentItem, error)
	Create(ctx context.Context, in NewItem) (model.ContentItem, error)
	Update(ctx context.Context, id uuid.UUID, in ItemUpdate) (model.ContentItem, error)
	Delete(ctx context.Context, id uuid.UUID) (model.ContentItem, error)
	Reorder(ctx context.Context, contentType enums.ContentType, ids []uuid.UUID) error
}

// CachedSection is one cache read. Version is the section's write generation
// at read time, hit or miss.
type CachedSection struct {
	Items   []model.ContentItem
	Hit     bool
	Version int64
}

// SectionCache fills are conditional: SetSection stores nothing when the
// section was invalidated after the version was read.
type SectionCache interface {
	GetSection(ctx context.Context, contentType enums.ContentType) (CachedSection, error)
	SetSection(ctx context.Context, contentType enums.ContentType, version int64, items []model.ContentItem, ttl time.Duration) (bool, error)
	InvalidateSection(ctx context.Context, contentType enums.ContentType) error
}

type AddInput struct {
	Type     string
	Title    string
	URL      string
	ImageURL string
}

type EditInput struct {
	Title string
	URL   string
}

type Service struct {
	store    Store
	cache    SectionCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		cacheTTL: defaultCacheTTL,
		logger:   logger,
	}
}

// AttachCache puts a read-through cache in front of Section.
func (s *Service) AttachCache(cache SectionCache, ttl time.Duration) {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

func (s *Service) List(ctx context.Context, rawType string) ([]model.ContentItem, error) {
	contentType, err := parseType(rawType)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListByType(ctx, contentType)
	if err != nil {
		return nil, fmt.Errorf("list %s content: %w", contentType, err)
	}
	return items, nil
}

// Section is the cached listing used by the public page. Cache failures are
// logged and fall through to the store; a fill racing a write is dropped.
func (s *Service) Section(ctx context.Context, contentType enums.ContentType) ([]model.ContentItem, error) {
	if _, ok := enums.ParseContentType(string(contentType)); !ok {
		return nil, fmt.Errorf("%w: unknown content type %q", ErrValidation, contentType)
	}

	fill := false
	var version int64
	if s.cache != nil {
		cached, err := s.cache.GetSection(ctx, contentType)
		switch {
		case err != nil:
			s.logger.Warn("section cache read failed", zap.String("type", string(contentType)), zap.Error(err))
		case cached.Hit:
			return cached.Items, nil
		default:
			fill, version = true, cached.Version
		}
	}

	items, err := s.store.ListByType(ctx, contentType)
	if err != nil {
		return nil, fmt.Errorf("list %s content: %w", contentType, err)
	}

	if fill {
		stored, err := s.cache.SetSection(ctx, contentType, version, items, s.cacheTTL)
		if err != nil {
			s.logger.Warn("section cache write failed", zap.String("type", string(contentType)), zap.Error(err))
		} else if !stored {
			s.logger.Debug("section changed while loading, cache fill skipped", zap.String("type", string(contentType)))
		}
	}
	return items, nil
}

// Hero returns the first hero entry, or ok=false when none is configured.
func (s *Service) Hero(ctx context.Context) (model.ContentItem, bool, error) {
	items, err := s.Section(ctx, enums.ContentTypeHero)
	if err != nil {
		return model.ContentItem{}, false, err
	}
	if len(items) == 0 {
		return model.ContentItem{}, false, nil
	}
	return items[0], true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.ContentItem, error) {
	return s.store.Get(ctx, id)
}

// Add appends an entry to its section. Hero entries need a URL or an uploaded
// image; gallery entries need a video URL.
func (s *Service) Add(ctx context.Context, in AddInput) (model.ContentItem, error) {
	contentType, err := parseType(in.Type)
	if err != nil {
		return model.ContentItem{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.ContentItem{}, fmt.Errorf("%w: please enter a title", ErrValidation)
	}

	embedURL := optional(in.URL)
	imageURL := optional(in.ImageURL)
	if contentType == enums.ContentTypeHero {
		if embedURL == nil && imageURL == nil {
			return model.ContentItem{}, fmt.Errorf("%w: please upload an image/video or enter a URL", ErrValidation)
		}
	} else if embedURL == nil {
		return model.ContentItem{}, fmt.Errorf("%w: please enter a video URL", ErrValidation)
	}

	item, err := s.store.Create(ctx, NewItem{
		Type:     contentType,
		Title:    title,
		EmbedURL: embedURL,
		ImageURL: imageURL,
	})
	if err != nil {
		return model.ContentItem{}, fmt.Errorf("create content: %w", err)
	}

	s.invalidate(ctx, contentType)
	s.logger.Info("content added", zap.String("id", item.ID.String()), zap.String("type", string(contentType)))
	return item, nil
}

// Edit replaces the title and points both the embed and the image at url, so
// clearing url clears both.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, in EditInput) (model.ContentItem, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.ContentItem{}, fmt.Errorf("%w: please enter a title", ErrValidation)
	}

	url := optional(in.URL)
	item, err := s.store.Update(ctx, id, ItemUpdate{
		Title:    title,
		EmbedURL: url,
		ImageURL: url,
	})
	if err != nil {
		return model.ContentItem{}, err
	}

	s.invalidate(ctx, item.Type)
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	item, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.invalidate(ctx, item.Type)
	s.logger.Info("content deleted", zap.String("id", id.String()), zap.String("type", string(item.Type)))
	return nil
}

func (s *Service) Reorder(ctx context.Context, rawType string, ids []uuid.UUID) error {
	contentType, err := parseType(rawType)
	if err != nil {
		return err
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrOrderMismatch
		}
		seen[id] = struct{}{}
	}

	if err := s.store.Reorder(ctx, contentType, ids); err != nil {
		return err
	}

	s.invalidate(ctx, contentType)
	return nil
}

func (s *Service) invalidate(ctx context.Context, contentType enums.ContentType) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSection(ctx, contentType); err != nil {
		s.logger.Warn("section cache invalidate failed", zap.String("type", string(contentType)), zap.Error(err))
	}
}

func parseType(raw string) (enums.ContentType, error) {
	contentType, ok := enums.ParseContentType(strings.TrimSpace(raw))
	if !ok {
		return "", fmt.Errorf("%w: type must be one of hero, short_form, long_form", ErrValidation)
	}
	return contentType, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
