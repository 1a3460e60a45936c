package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/portfolio/internal/domain/model"
	mediasvc "github.com/ivankudzin/portfolio/internal/services/media"
	"github.com/ivankudzin/portfolio/internal/transport/http/dto"
)

type mediaStoreStub struct{}

func (mediaStoreStub) CreateObject(_ context.Context, in mediasvc.ObjectRecord) (model.MediaObject, error) {
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

type objectStorageStub struct {
	keys []string
}

func (s *objectStorageStub) EnsureBucket(context.Context) error {
	return nil
}

func (s *objectStorageStub) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	_, _ = io.Copy(io.Discard, body)
	s.keys = append(s.keys, key)
	return nil
}

func (s *objectStorageStub) Delete(context.Context, string) error {
	return nil
}

func multipartUpload(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/media", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newMediaHandlerForTest(maxBytes int64) (*MediaHandler, *objectStorageStub) {
	storage := &objectStorageStub{}
	svc := mediasvc.NewService(mediaStoreStub{}, storage, mediasvc.Options{
		Bucket:        "media",
		PublicBaseURL: "http://localhost:9000",
		MaxBytes:      maxBytes,
	}, nil)
	return NewMediaHandler(svc, nil), storage
}

func TestMediaUploadImage(t *testing.T) {
	handler, storage := newMediaHandlerForTest(0)

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.Upload(rr, multipartUpload(t, "hero.png", img.Bytes()))

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d (%s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
	var resp dto.MediaObjectResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ContentType != "image/png" || resp.ThumbURL == nil {
		t.Fatalf("unexpected upload response: %+v", resp)
	}
	if len(storage.keys) != 2 {
		t.Fatalf("expected object and thumbnail to be stored, got %v", storage.keys)
	}
}

func TestMediaUploadErrors(t *testing.T) {
	handler, _ := newMediaHandlerForTest(64)

	rr := httptest.NewRecorder()
	handler.Upload(rr, multipartUpload(t, "notes.txt", []byte("plain text notes")))
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("unexpected status for text: got %d want %d", rr.Code, http.StatusUnsupportedMediaType)
	}

	rr = httptest.NewRecorder()
	handler.Upload(rr, multipartUpload(t, "big.mp4", bytes.Repeat([]byte{0}, 128)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status for large file: got %d want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}

	rr = httptest.NewRecorder()
	handler.Upload(rr, httptest.NewRequest(http.MethodPost, "/v1/admin/media", bytes.NewReader([]byte("x"))))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for non multipart: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
