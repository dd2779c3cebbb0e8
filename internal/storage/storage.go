// Package storage keeps pizza photos in a bucket and hands out their public
// URLs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxPhotoSize is the largest photo accepted for upload.
const MaxPhotoSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("photo must be a jpeg, png or webp image")
	ErrInvalidPath     = errors.New("invalid photo path")
)

// Photo is a stored object: its path inside the bucket and its public URL.
type Photo struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// PhotoStore is implemented by DiskStore and SupabaseStore.
type PhotoStore interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader) (Photo, error)
	Remove(ctx context.Context, path string) error
}

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Detect sniffs the content type of r. It returns the detected type, the file
// extension to store it under, and a reader that replays the sniffed bytes.
func Detect(r io.Reader) (contentType, ext string, body io.Reader, err error) {
	header := make([]byte, 3072)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, err
	}
	header = header[:n]

	mt := mimetype.Detect(header)
	for t, e := range allowedTypes {
		if mt.Is(t) {
			return t, e, io.MultiReader(bytes.NewReader(header), r), nil
		}
	}
	return "", "", nil, ErrUnsupportedType
}

// cleanPath rejects empty, absolute and parent-escaping object paths.
func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidPath
	}
	return c, nil
}
