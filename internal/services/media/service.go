package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/ivankudzin/portfolio/internal/domain/model"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrTooLarge           = errors.New("file is too large")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrObjectNotFound     = errors.New("media object not found")
	ErrStorageUnavailable = errors.New("object storage unavailable")
)

const (
	defaultBucket   = "media"
	defaultMaxBytes = 50 << 20
	sniffLen        = 512
	thumbWidth      = 480
	thumbPrefix     = "thumbs/"
	maxNameLen      = 100
)

var allowedTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/gif":       {},
	"image/webp":      {},
	"video/mp4":       {},
	"video/webm":      {},
	"video/ogg":       {},
	"video/quicktime": {},
}

// ObjectRecord is the row written for every stored upload.
type ObjectRecord struct {
	ObjectKey   string
	ThumbKey    *string
	ContentType string
	SizeBytes   int64
	PublicURL   string
}

type Store interface {
	CreateObject(ctx context.Context, in ObjectRecord) (model.MediaObject, error)
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type Options struct {
	Bucket        string
	PublicBaseURL string
	MaxBytes      int64
}

type UploadInput struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type Service struct {
	store   Store
	storage ObjectStorage
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(store Store, storage ObjectStorage, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Bucket = strings.TrimSpace(opts.Bucket)
	if opts.Bucket == "" {
		opts.Bucket = defaultBucket
	}
	opts.PublicBaseURL = strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	return &Service{
		store:   store,
		storage: storage,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) MaxBytes() int64 {
	return s.opts.MaxBytes
}

// Upload stores the file under a timestamped key, adds a thumbnail for
// still images and records the object. The returned object carries the
// public URL content rows point at.
func (s *Service) Upload(ctx context.Context, in UploadInput) (model.MediaObject, error) {
	if in.Body == nil {
		return model.MediaObject{}, fmt.Errorf("%w: file is required", ErrValidation)
	}
	if in.Size > s.opts.MaxBytes {
		return model.MediaObject{}, ErrTooLarge
	}
	if s.store == nil || s.storage == nil {
		return model.MediaObject{}, fmt.Errorf("media dependencies are not configured")
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.opts.MaxBytes+1))
	if err != nil {
		return model.MediaObject{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.opts.MaxBytes {
		return model.MediaObject{}, ErrTooLarge
	}
	if len(data) == 0 {
		return model.MediaObject{}, fmt.Errorf("%w: file is empty", ErrValidation)
	}

	contentType := detectContentType(data, in.Filename)
	if _, ok := allowedTypes[contentType]; !ok {
		return model.MediaObject{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return model.MediaObject{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key := objectKey(s.now(), in.Filename)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return model.MediaObject{}, fmt.Errorf("put object: %w", err)
	}
	stored := []string{key}

	var thumbKey *string
	if isThumbnailable(contentType) {
		if tk, err := s.putThumbnail(ctx, key, data); err != nil {
			s.logger.Warn("thumbnail skipped", zap.String("key", key), zap.Error(err))
		} else {
			thumbKey = &tk
			stored = append(stored, tk)
		}
	}

	obj, err := s.store.CreateObject(ctx, ObjectRecord{
		ObjectKey:   key,
		ThumbKey:    thumbKey,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		PublicURL:   s.PublicURL(key),
	})
	if err != nil {
		for _, k := range stored {
			if delErr := s.storage.Delete(ctx, k); delErr != nil {
				s.logger.Warn("remove unrecorded object failed", zap.String("key", k), zap.Error(delErr))
			}
		}
		return model.MediaObject{}, fmt.Errorf("record media object: %w", err)
	}

	s.logger.Info("media uploaded",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("size", len(data)),
	)
	return obj, nil
}

// Discard removes an object and its thumbnail from storage.
func (s *Service) Discard(ctx context.Context, obj model.MediaObject) error {
	if s.storage == nil {
		return fmt.Errorf("media storage is not configured")
	}
	if err := s.storage.Delete(ctx, obj.ObjectKey); err != nil {
		return fmt.Errorf("delete object %s: %w", obj.ObjectKey, err)
	}
	if obj.ThumbKey != nil && *obj.ThumbKey != "" {
		if err := s.storage.Delete(ctx, *obj.ThumbKey); err != nil {
			return fmt.Errorf("delete thumbnail %s: %w", *obj.ThumbKey, err)
		}
	}
	return nil
}

func (s *Service) PublicURL(key string) string {
	return s.opts.PublicBaseURL + "/" + s.opts.Bucket + "/" + key
}

func (s *Service) putThumbnail(ctx context.Context, key string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() > thumbWidth {
		img = imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	thumbKey := thumbPrefix + key + ".jpg"
	if err := s.storage.Put(ctx, thumbKey, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		return "", fmt.Errorf("put thumbnail: %w", err)
	}
	return thumbKey, nil
}

func detectContentType(data []byte, filename string) string {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	contentType := http.DetectContentType(head)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if contentType == "application/octet-stream" && strings.EqualFold(path.Ext(filename), ".mov") {
		return "video/quicktime"
	}
	if contentType == "application/ogg" {
		return "video/ogg"
	}
	return contentType
}

// webp is stored as is; imaging has no decoder for it.
func isThumbnailable(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif":
		return true
	default:
		return false
	}
}

func objectKey(now time.Time, filename string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + sanitizeFilename(filename)
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}

	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-.")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		return "upload"
	}
	return out
}
