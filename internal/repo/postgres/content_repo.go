package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	"github.com/ivankudzin/portfolio/internal/domain/model"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
)

const contentColumns = `id, type, title, embed_url, image_url, display_order, created_at, updated_at`

type ContentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

func (r *ContentRepo) ListByType(ctx context.Context, contentType enums.ContentType) ([]model.ContentItem, error) {
	if r.pool == nil {
		return nil, errNilPool
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+contentColumns+`
FROM content
WHERE type = $1
ORDER BY display_order ASC, created_at ASC
`, string(contentType))
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	items := make([]model.ContentItem, 0)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content: %w", err)
	}

	return items, nil
}

func (r *ContentRepo) Get(ctx context.Context, id uuid.UUID) (model.ContentItem, error) {
	if r.pool == nil {
		return model.ContentItem{}, errNilPool
	}

	row := r.pool.QueryRow(ctx, `SELECT `+contentColumns+` FROM content WHERE id = $1`, id)
	item, err := scanContent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ContentItem{}, contentsvc.ErrNotFound
		}
		return model.ContentItem{}, fmt.Errorf("get content: %w", err)
	}
	return item, nil
}

// Create appends the item at the end of its section. The per-type advisory
// lock keeps display_order dense when two editors add at the same time.
func (r *ContentRepo) Create(ctx context.Context, in contentsvc.NewItem) (model.ContentItem, error) {
	var created model.ContentItem
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('content:' || $1))`, string(in.Type)); err != nil {
			return fmt.Errorf("lock content type: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM content WHERE type = $1`, string(in.Type)).Scan(&count); err != nil {
			return fmt.Errorf("count content: %w", err)
		}

		row := tx.QueryRow(ctx, `
INSERT INTO content (type, title, embed_url, image_url, display_order)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+contentColumns,
			string(in.Type), in.Title, in.EmbedURL, in.ImageURL, count,
		)
		item, err := scanContent(row)
		if err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
		created = item
		return nil
	})
	if err != nil {
		return model.ContentItem{}, err
	}
	return created, nil
}

func (r *ContentRepo) Update(ctx context.Context, id uuid.UUID, in contentsvc.ItemUpdate) (model.ContentItem, error) {
	if r.pool == nil {
		return model.ContentItem{}, errNilPool
	}

	row := r.pool.QueryRow(ctx, `
UPDATE content
SET title = $2,
    embed_url = $3,
    image_url = $4,
    updated_at = NOW()
WHERE id = $1
RETURNING `+contentColumns,
		id, in.Title, in.EmbedURL, in.ImageURL,
	)
	item, err := scanContent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ContentItem{}, contentsvc.ErrNotFound
		}
		return model.ContentItem{}, fmt.Errorf("update content: %w", err)
	}
	return item, nil
}

func (r *ContentRepo) Delete(ctx context.Context, id uuid.UUID) (model.ContentItem, error) {
	if r.pool == nil {
		return model.ContentItem{}, errNilPool
	}

	row := r.pool.QueryRow(ctx, `DELETE FROM content WHERE id = $1 RETURNING `+contentColumns, id)
	item, err := scanContent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ContentItem{}, contentsvc.ErrNotFound
		}
		return model.ContentItem{}, fmt.Errorf("delete content: %w", err)
	}
	return item, nil
}

// Reorder rewrites display_order for a whole section. ids must name every
// item of the type exactly once.
func (r *ContentRepo) Reorder(ctx context.Context, contentType enums.ContentType, ids []uuid.UUID) error {
	return WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM content WHERE type = $1 FOR UPDATE`, string(contentType))
		if err != nil {
			return fmt.Errorf("lock content rows: %w", err)
		}
		stored := make(map[uuid.UUID]struct{})
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan content id: %w", err)
			}
			stored[id] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate content ids: %w", err)
		}

		if len(stored) != len(ids) {
			return contentsvc.ErrOrderMismatch
		}
		for _, id := range ids {
			if _, ok := stored[id]; !ok {
				return contentsvc.ErrOrderMismatch
			}
			// Each id may be placed once.
			delete(stored, id)
		}

		batch := &pgx.Batch{}
		for position, id := range ids {
			batch.Queue(`UPDATE content SET display_order = $2, updated_at = NOW() WHERE id = $1`, id, position)
		}
		results := tx.SendBatch(ctx, batch)
		for range ids {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("update display order: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close reorder batch: %w", err)
		}
		return nil
	})
}

func scanContent(row pgx.Row) (model.ContentItem, error) {
	var (
		item        model.ContentItem
		contentType string
	)
	if err := row.Scan(
		&item.ID,
		&contentType,
		&item.Title,
		&item.EmbedURL,
		&item.ImageURL,
		&item.DisplayOrder,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return model.ContentItem{}, err
	}
	item.Type = enums.ContentType(contentType)
	return item, nil
}
