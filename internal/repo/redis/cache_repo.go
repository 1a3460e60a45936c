package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/portfolio/internal/domain/enums"
	"github.com/ivankudzin/portfolio/internal/domain/model"
	contentsvc "github.com/ivankudzin/portfolio/internal/services/content"
)

const sectionCachePrefix = "cache:section:"

// setSectionScript writes the blob only while the section version still
// equals ARGV[1]; an invalidation in between bumps the version and the stale
// fill is dropped. Returns 1 when written.
var setSectionScript = goredis.NewScript(`
local current = redis.call("GET", KEYS[2])
if not current then
  current = "0"
end
if current ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
  redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// CacheRepo stores the public section listings as JSON blobs next to a
// per-section version counter that every invalidation increments.
type CacheRepo struct {
	client *goredis.Client
}

func NewCacheRepo(client *goredis.Client) *CacheRepo {
	return &CacheRepo{client: client}
}

func (r *CacheRepo) GetSection(ctx context.Context, contentType enums.ContentType) (contentsvc.CachedSection, error) {
	if r.client == nil {
		return contentsvc.CachedSection{}, errNilClient
	}

	values, err := r.client.MGet(ctx, sectionKey(contentType), versionKey(contentType)).Result()
	if err != nil {
		return contentsvc.CachedSection{}, fmt.Errorf("get cached section: %w", err)
	}

	var section contentsvc.CachedSection
	if raw, ok := values[1].(string); ok {
		if section.Version, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return contentsvc.CachedSection{}, fmt.Errorf("parse section version %q: %w", raw, err)
		}
	}

	raw, ok := values[0].(string)
	if !ok {
		return section, nil
	}
	if err := json.Unmarshal([]byte(raw), &section.Items); err != nil {
		// A blob we cannot read is treated as a miss and overwritten on the next fill.
		section.Items = nil
		return section, nil
	}
	section.Hit = true
	return section, nil
}

// SetSection stores items if the section is still at version. It reports
// false when a write invalidated the section after version was read.
func (r *CacheRepo) SetSection(ctx context.Context, contentType enums.ContentType, version int64, items []model.ContentItem, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilClient
	}
	if items == nil {
		items = []model.ContentItem{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("encode section: %w", err)
	}

	written, err := setSectionScript.Run(ctx, r.client,
		[]string{sectionKey(contentType), versionKey(contentType)},
		version, raw, ttl.Milliseconds(),
	).Int()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return false, fmt.Errorf("set cached section: %w", err)
	}
	return written == 1, nil
}

func (r *CacheRepo) InvalidateSection(ctx context.Context, contentType enums.ContentType) error {
	if r.client == nil {
		return errNilClient
	}

	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(contentType))
		pipe.Del(ctx, sectionKey(contentType))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached section: %w", err)
	}
	return nil
}

func sectionKey(contentType enums.ContentType) string {
	return sectionCachePrefix + string(contentType)
}

func versionKey(contentType enums.ContentType) string {
	return sectionCachePrefix + string(contentType) + ":version"
}
