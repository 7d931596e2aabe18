package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageConfig locates the bucket that holds published index files.
type StorageConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Enabled reports whether an object store is configured.
func (c StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// ArtifactStore moves built index files to and from S3-compatible storage, so
// a build produced offline can be shared by every serving replica.
type ArtifactStore struct {
	client *minio.Client
	bucket string
}

// NewArtifactStore connects to the configured object store.
func NewArtifactStore(cfg StorageConfig) (*ArtifactStore, error) {
	if !cfg.Enabled() {
		return nil, errors.New("knowledge: object storage endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &ArtifactStore{client: client, bucket: cfg.Bucket}, nil
}

// Publish uploads the index file at path as object.
func (a *ArtifactStore) Publish(ctx context.Context, path, object string) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	_, err = a.client.FPutObject(ctx, a.bucket, object, path, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}
	return nil
}

// Fetch downloads object to path, replacing any existing file only once the
// download has completed.
func (a *ArtifactStore) Fetch(ctx context.Context, object, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".download"
	if err := a.client.FGetObject(ctx, a.bucket, object, tmp, minio.GetObjectOptions{}); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", object, err)
	}
	return os.Rename(tmp, path)
}
