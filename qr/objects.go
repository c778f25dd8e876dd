package qr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/apperr"
)

const DefaultBucket = "clinic-qr"

// ObjectStore keeps rendered QR images.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *zap.Logger
}

// NewMinioStore stores objects in bucket. baseURL is the public prefix the
// returned object URLs are built from.
func NewMinioStore(client *minio.Client, bucket, baseURL string, logger *zap.Logger) *MinioStore {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &MinioStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return apperr.Unavailable("check bucket "+s.bucket, err)
	}
	if exists {
		s.logger.Info("bucket verified", zap.String("bucket", s.bucket))
		return nil
	}

	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return apperr.Unavailable("create bucket "+s.bucket, err)
	}
	s.logger.Info("bucket created", zap.String("bucket", s.bucket))
	return nil
}

func (s *MinioStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	info, err := s.client.PutObject(
		ctx,
		s.bucket,
		name,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "image/png",
		},
	)
	if err != nil {
		s.logger.Error("failed to upload to minio",
			zap.Error(err),
			zap.String("bucket", s.bucket),
			zap.String("filename", name))
		return "", apperr.Unavailable("store qr image", err)
	}
	if info.Size == 0 {
		return "", apperr.Unavailable("store qr image", fmt.Errorf("upload of %s completed with size 0", name))
	}
	return s.baseURL + "/qr/" + name, nil
}

// Get retries transient failures a few times with exponential backoff.
func (s *MinioStore) Get(ctx context.Context, name string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
		if err == nil {
			var data []byte
			data, err = io.ReadAll(obj)
			_ = obj.Close()
			if err == nil {
				return data, nil
			}
		}
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperr.NotFound("qr image")
		}
		lastErr = err

		s.logger.Warn("attempt to get object from minio failed, retrying...",
			zap.Error(err),
			zap.String("filename", name),
			zap.Int("attempt", attempt+1))
		if attempt < 2 {
			select {
			case <-ctx.Done():
				return nil, apperr.Unavailable("read qr image", ctx.Err())
			case <-time.After(time.Duration(100*(2<<attempt)) * time.Millisecond):
			}
		}
	}
	return nil, apperr.Unavailable("read qr image", lastErr)
}

func (s *MinioStore) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return apperr.Unavailable("delete qr image", err)
	}
	return nil
}

// MemoryStore keeps images in memory for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *MemoryStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = append([]byte(nil), data...)
	return s.baseURL + "/qr/" + name, nil
}

func (s *MemoryStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[name]
	if !ok {
		return nil, apperr.NotFound("qr image")
	}
	return data, nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
