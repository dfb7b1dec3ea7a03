package artifactsource

import (
	"bytes"
	"context"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config names the bucket/prefix for an AWS S3-backed artifact source,
// using the default credential chain (env, shared config, IAM role).
type S3Config struct {
	Region string
	Bucket string
	Prefix string
}

// S3 reads the two artifacts from an AWS S3 bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 constructs an S3-backed Source using aws-sdk-go-v2's default
// config loader.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *S3) ReadManifest(ctx context.Context) ([]byte, error) {
	return s.getObject(ctx, ManifestFilename)
}

func (s *S3) ReadCatalog(ctx context.Context) ([]byte, error) {
	return s.getObject(ctx, CatalogFilename)
}

func (s *S3) getObject(ctx context.Context, name string) ([]byte, error) {
	key := name
	if s.prefix != "" {
		key = s.prefix + "/" + name
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", s.bucket, key, err)
	}
	return buf.Bytes(), nil
}
