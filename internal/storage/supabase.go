package storage

import (
	"context"
	"fmt"
	"io"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// bucketClient is the subset of the Supabase Storage API used here.
// Satisfied by *storage_go.Client.
type bucketClient interface {
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketId string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
	RemoveFile(bucketId string, paths []string) ([]storage_go.FileUploadResponse, error)
}

// SupabaseStore keeps photos in a public Supabase Storage bucket.
type SupabaseStore struct {
	client bucketClient
	bucket string
}

func NewSupabaseStore(url, key, bucket string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &SupabaseStore{client: client.Storage, bucket: bucket}, nil
}

func (s *SupabaseStore) Upload(ctx context.Context, path, contentType string, r io.Reader) (Photo, error) {
	p, err := cleanPath(path)
	if err != nil {
		return Photo{}, err
	}
	upsert := false
	cacheControl := "3600"
	_, err = s.client.UploadFile(s.bucket, p, r, storage_go.FileOptions{
		ContentType:  &contentType,
		CacheControl: &cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		return Photo{}, fmt.Errorf("upload %s: %w", p, err)
	}
	return Photo{Path: p, URL: s.client.GetPublicUrl(s.bucket, p).SignedURL}, nil
}

func (s *SupabaseStore) Remove(ctx context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{p}); err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}
