package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	storage_go "github.com/supabase-community/storage-go"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantCT  string
		wantExt string
		wantErr error
	}{
		{"png", pngHeader, "image/png", "png", nil},
		{"jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), "image/jpeg", "jpg", nil},
		{"text", []byte("hello world"), "", "", ErrUnsupportedType},
		{"empty", nil, "", "", ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, ext, body, err := Detect(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if ct != tt.wantCT || ext != tt.wantExt {
				t.Errorf("got (%q, %q), want (%q, %q)", ct, ext, tt.wantCT, tt.wantExt)
			}
			replayed, _ := io.ReadAll(body)
			if !bytes.Equal(replayed, tt.data) {
				t.Error("body does not replay the sniffed bytes")
			}
		})
	}
}

func TestCleanPath(t *testing.T) {
	for _, p := range []string{"", "/etc/passwd", "../x.png", "a/../../x.png", "..", `a\b.png`} {
		if _, err := cleanPath(p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("cleanPath(%q): expected ErrInvalidPath, got %v", p, err)
		}
	}
	if got, err := cleanPath("a/./b.png"); err != nil || got != "a/b.png" {
		t.Errorf("cleanPath: got (%q, %v)", got, err)
	}
}

func TestDiskStore_UploadServeRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "http://api.test/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	photo, err := store.Upload(ctx, "1700000000000-Pepperoni.png", "image/png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	want := Photo{Path: "1700000000000-Pepperoni.png", URL: "http://api.test/photos/1700000000000-Pepperoni.png"}
	if diff := cmp.Diff(want, photo); diff != "" {
		t.Errorf("photo (-want +got):\n%s", diff)
	}

	rr := httptest.NewRecorder()
	store.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/photos/1700000000000-Pepperoni.png", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("serve: expected 200, got %d", rr.Code)
	}
	if !bytes.Equal(rr.Body.Bytes(), pngHeader) {
		t.Error("served bytes differ from uploaded bytes")
	}

	rr = httptest.NewRecorder()
	store.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/photos/", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("directory listing: expected 404, got %d", rr.Code)
	}

	if err := store.Remove(ctx, photo.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, photo.Path)); !os.IsNotExist(err) {
		t.Error("photo still on disk after remove")
	}
	if err := store.Remove(ctx, photo.Path); err != nil {
		t.Errorf("removing a missing photo should succeed, got %v", err)
	}
}

func TestDiskStore_EscapesPhotoURL(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://api.test")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path    string
		wantURL string
	}{
		{"1-a#b?c%.png", "http://api.test/photos/1-a%23b%3Fc%25.png"},
		{"menu/1-Quattro Formaggi.png", "http://api.test/photos/menu/1-Quattro%20Formaggi.png"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			photo, err := store.Upload(context.Background(), tt.path, "image/png", bytes.NewReader(pngHeader))
			if err != nil {
				t.Fatalf("upload: %v", err)
			}
			if photo.Path != tt.path || photo.URL != tt.wantURL {
				t.Errorf("got (%q, %q), want (%q, %q)", photo.Path, photo.URL, tt.path, tt.wantURL)
			}

			rr := httptest.NewRecorder()
			target := strings.TrimPrefix(photo.URL, "http://api.test")
			store.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
			if rr.Code != http.StatusOK || !bytes.Equal(rr.Body.Bytes(), pngHeader) {
				t.Errorf("serve %s: got %d", target, rr.Code)
			}
		})
	}
}

func TestDiskStore_RejectsEscapingPath(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "http://api.test")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Upload(context.Background(), "../evil.png", "image/png", strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

type fakeBucket struct {
	uploaded map[string][]byte
	options  storage_go.FileOptions
	removed  []string
	err      error
}

func (f *fakeBucket) UploadFile(bucketId, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	if f.err != nil {
		return storage_go.FileUploadResponse{}, f.err
	}
	b, _ := io.ReadAll(data)
	f.uploaded[bucketId+"/"+relativePath] = b
	if len(fileOptions) > 0 {
		f.options = fileOptions[0]
	}
	return storage_go.FileUploadResponse{}, nil
}

func (f *fakeBucket) GetPublicUrl(bucketId, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return storage_go.SignedUrlResponse{SignedURL: "https://x.supabase.co/storage/v1/object/public/" + bucketId + "/" + filePath}
}

func (f *fakeBucket) RemoveFile(bucketId string, paths []string) ([]storage_go.FileUploadResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range paths {
		f.removed = append(f.removed, bucketId+"/"+p)
	}
	return nil, nil
}

func TestSupabaseStore(t *testing.T) {
	bucket := &fakeBucket{uploaded: map[string][]byte{}}
	store := &SupabaseStore{client: bucket, bucket: "pizzas"}
	ctx := context.Background()

	photo, err := store.Upload(ctx, "1-Margherita.png", "image/png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if photo.URL != "https://x.supabase.co/storage/v1/object/public/pizzas/1-Margherita.png" {
		t.Errorf("url: got %q", photo.URL)
	}
	if !bytes.Equal(bucket.uploaded["pizzas/1-Margherita.png"], pngHeader) {
		t.Error("uploaded bytes not stored under bucket path")
	}
	if bucket.options.ContentType == nil || *bucket.options.ContentType != "image/png" {
		t.Error("content type not forwarded")
	}

	if err := store.Remove(ctx, photo.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := cmp.Diff([]string{"pizzas/1-Margherita.png"}, bucket.removed); diff != "" {
		t.Errorf("removed (-want +got):\n%s", diff)
	}
}

func TestSupabaseStore_Errors(t *testing.T) {
	bucket := &fakeBucket{uploaded: map[string][]byte{}, err: errors.New("bucket unavailable")}
	store := &SupabaseStore{client: bucket, bucket: "pizzas"}

	if _, err := store.Upload(context.Background(), "a.png", "image/png", bytes.NewReader(pngHeader)); err == nil {
		t.Error("expected upload error")
	}
	if err := store.Remove(context.Background(), "a.png"); err == nil {
		t.Error("expected remove error")
	}
}
