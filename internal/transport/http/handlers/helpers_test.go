package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	"github.com/ivankudzin/portfolio/internal/domain/model"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
)

type contentStoreStub struct {
	mu    sync.Mutex
	items map[uuid.UUID]model.ContentItem
	err   error
}

func newContentStoreStub() *contentStoreStub {
	return &contentStoreStub{items: make(map[uuid.UUID]model.ContentItem)}
}

func (s *contentStoreStub) ListByType(_ context.Context, contentType enums.ContentType) ([]model.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.ContentItem, 0)
	for _, item := range s.items {
		if item.Type == contentType {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (s *contentStoreStub) Get(_ context.Context, id uuid.UUID) (model.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return model.ContentItem{}, contentsvc.ErrNotFound
	}
	return item, nil
}

func (s *contentStoreStub) Create(_ context.Context, in contentsvc.NewItem) (model.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := 0
	for _, item := range s.items {
		if item.Type == in.Type {
			order++
		}
	}
	now := time.Now().UTC()
	item := model.ContentItem{
		ID:           uuid.New(),
		Type:         in.Type,
		Title:        in.Title,
		EmbedURL:     in.EmbedURL,
		ImageURL:     in.ImageURL,
		DisplayOrder: order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.items[item.ID] = item
	return item, nil
}

func (s *contentStoreStub) Update(_ context.Context, id uuid.UUID, in contentsvc.ItemUpdate) (model.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return model.ContentItem{}, contentsvc.ErrNotFound
	}
	item.Title = in.Title
	item.EmbedURL = in.EmbedURL
	item.ImageURL = in.ImageURL
	s.items[id] = item
	return item, nil
}

func (s *contentStoreStub) Delete(_ context.Context, id uuid.UUID) (model.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return model.ContentItem{}, contentsvc.ErrNotFound
	}
	delete(s.items, id)
	return item, nil
}

func (s *contentStoreStub) Reorder(_ context.Context, contentType enums.ContentType, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, item := range s.items {
		if item.Type == contentType {
			count++
		}
	}
	if count != len(ids) {
		return contentsvc.ErrOrderMismatch
	}
	for position, id := range ids {
		item, ok := s.items[id]
		if !ok || item.Type != contentType {
			return contentsvc.ErrOrderMismatch
		}
		item.DisplayOrder = position
		s.items[id] = item
	}
	return nil
}

func (s *contentStoreStub) add(contentType enums.ContentType, title, embedURL, imageURL string) model.ContentItem {
	in := contentsvc.NewItem{Type: contentType, Title: title}
	if embedURL != "" {
		in.EmbedURL = &embedURL
	}
	if imageURL != "" {
		in.ImageURL = &imageURL
	}
	item, _ := s.Create(context.Background(), in)
	return item
}

type counterStub struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCounterStub() *counterStub {
	return &counterStub{counts: make(map[string]int)}
}

func (c *counterStub) CountClassification(platform string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[platform]++
}

func withURLParam(ctx context.Context, key, value string) context.Context {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}
