// Package storage keeps recipe images in a MinIO bucket.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"recipebox/config"
	"recipebox/recipes"
)

type ImageStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func New(cfg config.MinioConfig) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}
	return &ImageStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL(cfg),
	}, nil
}

func publicURL(cfg config.MinioConfig) string {
	if cfg.PublicURL != "" {
		return strings.TrimSuffix(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *ImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// objectName puts the extension of the detected content type behind a random
// name. Unknown types keep the upload's own extension.
func objectName(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mt := mimetype.Lookup(contentType); mt != nil {
		ext = mt.Extension()
	}
	return uuid.New().String() + ext
}

// Put uploads the image and returns its object name.
func (s *ImageStore) Put(ctx context.Context, img recipes.Upload) (string, error) {
	name := objectName(img.Filename, img.ContentType)
	_, err := s.client.PutObject(ctx, s.bucket, name, img.Body, img.Size, minio.PutObjectOptions{
		ContentType: img.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return name, nil
}

func (s *ImageStore) Remove(ctx context.Context, ref string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove image %s: %w", ref, err)
	}
	return nil
}

func (s *ImageStore) URL(ref string) string {
	return s.publicURL + "/" + ref
}
