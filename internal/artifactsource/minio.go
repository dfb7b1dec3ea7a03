package artifactsource

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig names the bucket/prefix a compiled dbt project uploaded its
// target/ directory to.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string // e.g. "myproject/target"
}

// MinIO reads the two artifacts from an object in a MinIO (or
// S3-compatible) bucket.
type MinIO struct {
	mc     *minio.Client
	bucket string
	prefix string
}

// NewMinIO constructs a MinIO-backed Source.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIO{mc: mc, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (m *MinIO) ReadManifest(ctx context.Context) ([]byte, error) {
	return m.getObject(ctx, ManifestFilename)
}

func (m *MinIO) ReadCatalog(ctx context.Context) ([]byte, error) {
	return m.getObject(ctx, CatalogFilename)
}

func (m *MinIO) getObject(ctx context.Context, name string) ([]byte, error) {
	key := name
	if m.prefix != "" {
		key = m.prefix + "/" + name
	}
	obj, err := m.mc.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", m.bucket, key, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", m.bucket, key, err)
	}
	return buf.Bytes(), nil
}
