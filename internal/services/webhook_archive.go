package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// WebhookArchive keeps the raw bytes of inbound provider callbacks for audit.
type WebhookArchive interface {
	Store(ctx context.Context, provider string, body []byte, receivedAt time.Time) (string, error)
}

// ObjectStore is the subset of the MinIO client the archive uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type minioArchive struct {
	store  ObjectStore
	bucket string
}

// NewMinioClient connects to a MinIO or S3-compatible endpoint.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

func NewWebhookArchive(store ObjectStore, bucket string) WebhookArchive {
	return &minioArchive{store: store, bucket: bucket}
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func EnsureBucket(ctx context.Context, store ObjectStore, bucket string) error {
	found, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !found {
		return store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Store writes body under <provider>/<yyyy>/<mm>/<dd>/<unixnano>-<uuid>.json.
func (a *minioArchive) Store(ctx context.Context, provider string, body []byte, receivedAt time.Time) (string, error) {
	ts := receivedAt.UTC()
	key := fmt.Sprintf("%s/%s/%d-%s.json",
		strings.ToLower(provider), ts.Format("2006/01/02"), ts.UnixNano(), uuid.NewString())

	_, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive webhook: %w", err)
	}
	return key, nil
}

type noopArchive struct{}

// NewNoopArchive is used when no object store is configured.
func NewNoopArchive() WebhookArchive { return noopArchive{} }

func (noopArchive) Store(context.Context, string, []byte, time.Time) (string, error) { return "", nil }
