package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotStore archives codespace content to object storage. Each flush can
// store the previous durable code under snapshots/<uuid>/<timestamp>, giving
// a coarse history without touching the hot stores.
type SnapshotStore struct {
	client *minio.Client
	bucket string
}

// NewSnapshotStore creates a new MinIO-backed snapshot store and ensures the bucket exists.
func NewSnapshotStore(cfg *MinIOConfig) (*SnapshotStore, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &SnapshotStore{client: mc, bucket: cfg.Bucket}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// ArchiveSnapshot stores one code snapshot for the codespace. Implements the
// flush archiver contract.
func (s *SnapshotStore) ArchiveSnapshot(ctx context.Context, uuid, code string) error {
	key := fmt.Sprintf("snapshots/%s/%d", uuid, time.Now().UnixNano())
	r := strings.NewReader(code)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, int64(len(code)), minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	return err
}

// OpenSnapshot returns a ReadCloser for a stored snapshot key.
func (s *SnapshotStore) OpenSnapshot(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// perform a stat to ensure object exists
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// PresignedSnapshotURL returns a presigned GET URL valid for the given duration.
func (s *SnapshotStore) PresignedSnapshotURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	reqParams := make(url.Values)
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, reqParams)
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}
