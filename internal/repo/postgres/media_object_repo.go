package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/portfolio/internal/domain/model"
	mediasvc "github.com/ivankudzin/portfolio/internal/services/media"
)

const mediaObjectColumns = `id, object_key, thumb_key, content_type, size_bytes, public_url, created_at`

type MediaObjectRepo struct {
	pool *pgxpool.Pool
}

func NewMediaObjectRepo(pool *pgxpool.Pool) *MediaObjectRepo {
	return &MediaObjectRepo{pool: pool}
}

func (r *MediaObjectRepo) CreateObject(ctx context.Context, in mediasvc.ObjectRecord) (model.MediaObject, error) {
	if r.pool == nil {
		return model.MediaObject{}, errNilPool
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO media_objects (object_key, thumb_key, content_type, size_bytes, public_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+mediaObjectColumns,
		in.ObjectKey, in.ThumbKey, in.ContentType, in.SizeBytes, in.PublicURL,
	)
	obj, err := scanMediaObject(row)
	if err != nil {
		return model.MediaObject{}, fmt.Errorf("insert media object: %w", err)
	}
	return obj, nil
}

// ListOrphans returns uploads older than olderThan whose public URL is not
// used by any content row.
func (r *MediaObjectRepo) ListOrphans(ctx context.Context, olderThan time.Time, limit int) ([]model.MediaObject, error) {
	if r.pool == nil {
		return nil, errNilPool
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+mediaObjectColumns+`
FROM media_objects m
WHERE m.created_at < $1
  AND NOT EXISTS (
      SELECT 1 FROM content c
      WHERE c.embed_url = m.public_url OR c.image_url = m.public_url
  )
ORDER BY m.created_at ASC
LIMIT $2
`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("query orphan media: %w", err)
	}
	defer rows.Close()

	objects := make([]model.MediaObject, 0)
	for rows.Next() {
		obj, err := scanMediaObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan orphan media: %w", err)
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orphan media: %w", err)
	}
	return objects, nil
}

func (r *MediaObjectRepo) DeleteObject(ctx context.Context, id uuid.UUID) error {
	if r.pool == nil {
		return errNilPool
	}

	res, err := r.pool.Exec(ctx, `DELETE FROM media_objects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media object: %w", err)
	}
	if res.RowsAffected() == 0 {
		return mediasvc.ErrObjectNotFound
	}
	return nil
}

func scanMediaObject(row pgx.Row) (model.MediaObject, error) {
	var obj model.MediaObject
	err := row.Scan(
		&obj.ID,
		&obj.ObjectKey,
		&obj.ThumbKey,
		&obj.ContentType,
		&obj.SizeBytes,
		&obj.PublicURL,
		&obj.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MediaObject{}, mediasvc.ErrObjectNotFound
		}
		return model.MediaObject{}, err
	}
	return obj, nil
}
