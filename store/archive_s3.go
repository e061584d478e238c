package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for the S3 archive backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(p string) (bucket, prefix string) {
	parts := strings.SplitN(p, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// objectPutter is the slice of the S3 API the archiver uses.
// Satisfied by *s3.Client; faked in tests.
type objectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads completed artifacts (data file plus manifest) to S3
// for sharing across labs. Archiving is additive: the local artifact
// tree remains the source of truth.
type Archiver struct {
	client objectPutter
	config S3Config
}

// NewArchiver creates an archiver using the AWS SDK default credential
// chain (env vars, shared config, IAM role).
func NewArchiver(ctx context.Context, cfg S3Config) (*Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Archiver{
		client: s3.NewFromConfig(awsConfig, s3Opts...),
		config: cfg,
	}, nil
}

// NewArchiverWithClient creates an archiver with an injected S3 client.
// Used for test injection.
func NewArchiverWithClient(client objectPutter, cfg S3Config) (*Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Archiver{client: client, config: cfg}, nil
}

// Upload pushes the artifact at artifactPath and its manifest to
// <prefix>/<runID>/<basename>. The artifact must be complete (manifest
// present); partial artifacts are refused.
func (a *Archiver) Upload(ctx context.Context, artifactPath, runID string) error {
	if !Exists(artifactPath) {
		return fmt.Errorf("artifact %s is incomplete (missing data file or manifest)", artifactPath)
	}

	for _, local := range []string{artifactPath, ManifestPath(artifactPath)} {
		data, err := os.ReadFile(local)
		if err != nil {
			return fmt.Errorf("read %s: %w", local, err)
		}

		key := a.objectKey(runID, filepath.Base(local))
		_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: &a.config.Bucket,
			Key:    &key,
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("upload %s to s3://%s/%s: %w", local, a.config.Bucket, key, err)
		}
	}
	return nil
}

// objectKey builds the S3 key for an uploaded file.
func (a *Archiver) objectKey(runID, base string) string {
	if a.config.Prefix != "" {
		return path.Join(a.config.Prefix, runID, base)
	}
	return path.Join(runID, base)
}
