package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/portfolio/internal/domain/model"
)

type fakeStore struct {
	records []ObjectRecord
	err     error
}

func (f *fakeStore) CreateObject(_ context.Context, in ObjectRecord) (model.MediaObject, error) {
	if f.err != nil {
		return model.MediaObject{}, f.err
	}
	f.records = append(f.records, in)
	return model.MediaObject{
		ID:          uuid.New(),
		ObjectKey:   in.ObjectKey,
		ThumbKey:    in.ThumbKey,
		ContentType: in.ContentType,
		SizeBytes:   in.SizeBytes,
		PublicURL:   in.PublicURL,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

type storedObject struct {
	data        []byte
	contentType string
}

type fakeStorage struct {
	objects map[string]storedObject
	deleted []string
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]storedObject)}
}

func (f *fakeStorage) EnsureBucket(_ context.Context) error {
	return nil
}

func (f *fakeStorage) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = storedObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestService(store Store, storage ObjectStorage, maxBytes int64) *Service {
	svc := NewService(store, storage, Options{
		Bucket:        "media",
		PublicBaseURL: "http://localhost:9000/",
		MaxBytes:      maxBytes,
	}, nil)
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return svc
}

func TestUploadImageStoresObjectAndThumbnail(t *testing.T) {
	store := &fakeStore{}
	storage := newFakeStorage()
	svc := newTestService(store, storage, 0)

	data := pngBytes(t, 960, 540)
	obj, err := svc.Upload(context.Background(), UploadInput{Filename: "My Hero Shot.png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	wantKey := "1700000000123-My-Hero-Shot.png"
	if obj.ObjectKey != wantKey {
		t.Fatalf("unexpected key: got %q want %q", obj.ObjectKey, wantKey)
	}
	if obj.PublicURL != "http://localhost:9000/media/"+wantKey {
		t.Fatalf("unexpected public url: %q", obj.PublicURL)
	}
	if obj.ContentType != "image/png" {
		t.Fatalf("unexpected content type: %q", obj.ContentType)
	}

	if obj.ThumbKey == nil || *obj.ThumbKey != "thumbs/"+wantKey+".jpg" {
		t.Fatalf("expected thumbnail key, got %v", obj.ThumbKey)
	}
	thumb, ok := storage.objects[*obj.ThumbKey]
	if !ok || thumb.contentType != "image/jpeg" {
		t.Fatalf("thumbnail not stored as jpeg")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb.data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != thumbWidth || cfg.Height != 270 {
		t.Fatalf("unexpected thumbnail size %dx%d", cfg.Width, cfg.Height)
	}
}

func TestUploadVideoSkipsThumbnail(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(&fakeStore{}, storage, 0)

	mp4 := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypmp42\x00\x00\x00\x00mp42isom")...)
	obj, err := svc.Upload(context.Background(), UploadInput{Filename: "reel.mp4", Body: bytes.NewReader(mp4)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.ContentType != "video/mp4" {
		t.Fatalf("unexpected content type: %q", obj.ContentType)
	}
	if obj.ThumbKey != nil {
		t.Fatalf("videos must not get a thumbnail")
	}
	if len(storage.objects) != 1 {
		t.Fatalf("expected a single stored object, got %d", len(storage.objects))
	}
}

func TestUploadMovFallsBackToExtension(t *testing.T) {
	svc := newTestService(&fakeStore{}, newFakeStorage(), 0)

	mov := append([]byte{0x00, 0x00, 0x00, 0x14}, []byte("ftypqt  \x00\x00\x02\x00qt  ")...)
	obj, err := svc.Upload(context.Background(), UploadInput{Filename: "clip.MOV", Body: bytes.NewReader(mov)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.ContentType != "video/quicktime" {
		t.Fatalf("unexpected content type: %q", obj.ContentType)
	}
}

func TestUploadRejectsUnsupportedAndOversized(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(&fakeStore{}, storage, 16)

	_, err := svc.Upload(context.Background(), UploadInput{Filename: "notes.txt", Body: strings.NewReader("just some text")})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}

	_, err = svc.Upload(context.Background(), UploadInput{Filename: "big.png", Size: 17, Body: strings.NewReader("x")})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge from declared size, got %v", err)
	}

	_, err = svc.Upload(context.Background(), UploadInput{Filename: "big.png", Body: bytes.NewReader(make([]byte, 17))})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge from body, got %v", err)
	}

	_, err = svc.Upload(context.Background(), UploadInput{Filename: "empty.png", Body: bytes.NewReader(nil)})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty body, got %v", err)
	}

	if len(storage.objects) != 0 {
		t.Fatalf("rejected uploads must not reach storage")
	}
}

func TestUploadRemovesObjectsWhenRecordFails(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	storage := newFakeStorage()
	svc := newTestService(store, storage, 0)

	data := pngBytes(t, 64, 64)
	if _, err := svc.Upload(context.Background(), UploadInput{Filename: "a.png", Body: bytes.NewReader(data)}); err == nil {
		t.Fatalf("expected record error")
	}
	if len(storage.objects) != 0 {
		t.Fatalf("expected stored objects to be removed, %d left", len(storage.objects))
	}
	if len(storage.deleted) != 2 {
		t.Fatalf("expected object and thumbnail deletes, got %v", storage.deleted)
	}
}

func TestDiscardRemovesThumbnail(t *testing.T) {
	storage := newFakeStorage()
	svc := newTestService(&fakeStore{}, storage, 0)

	thumb := "thumbs/1-a.png.jpg"
	if err := svc.Discard(context.Background(), model.MediaObject{ObjectKey: "1-a.png", ThumbKey: &thumb}); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if len(storage.deleted) != 2 || storage.deleted[0] != "1-a.png" || storage.deleted[1] != thumb {
		t.Fatalf("unexpected deletes: %v", storage.deleted)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"photo.jpg":              "photo.jpg",
		"../../etc/passwd":       "passwd",
		`C:\Users\me\clip.mov`:   "clip.mov",
		"  my  clip (final).mp4": "my-clip-final-.mp4",
		"":                       "upload",
		"???":                    "upload",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := newFakeStorage()
	inner.putErr = errors.New("connection refused")
	breaker := NewBreakerStorage(inner, nil)

	for i := 0; i < breakerFailures; i++ {
		err := breaker.Put(context.Background(), "k", strings.NewReader("x"), 1, "image/png")
		if err == nil || errors.Is(err, ErrStorageUnavailable) {
			t.Fatalf("attempt %d: expected inner error, got %v", i+1, err)
		}
	}

	err := breaker.Put(context.Background(), "k", strings.NewReader("x"), 1, "image/png")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable once open, got %v", err)
	}
}
