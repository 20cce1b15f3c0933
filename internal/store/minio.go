package store

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ayush/layout-library/backend/internal/apperr"
)

// MinioFileStore keeps uploaded files as objects in a MinIO bucket, keyed
// by their stored name.
type MinioFileStore struct {
	client *minio.Client
	bucket string
}

func NewMinioFileStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioFileStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioFileStore{client: client, bucket: bucket}, nil
}

// Save streams r into the object named name.
func (s *MinioFileStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if !validFileName(name) {
		return errBadFileName
	}
	if contentType == "" {
		contentType = contentTypeOf(name)
	}
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", name, err)
	}
	return nil
}

// Open returns a reader over the object and its content type.
func (s *MinioFileStore) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if !validFileName(name) {
		return nil, "", apperr.ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", minioErr(name, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, "", minioErr(name, err)
	}
	return obj, info.ContentType, nil
}

// Remove deletes an object. A missing object reports apperr.ErrNotFound.
func (s *MinioFileStore) Remove(ctx context.Context, name string) error {
	if !validFileName(name) {
		return apperr.ErrNotFound
	}
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		return minioErr(name, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return minioErr(name, err)
	}
	return nil
}

func minioErr(name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("minio %s: %w", name, err)
}
