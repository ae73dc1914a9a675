// publish/s3.go
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cyterat/deepstate-map-data/config"
)

// Content types for published files.
const (
	ContentTypeGzip    = "application/gzip"
	ContentTypeGeoJSON = "application/geo+json"
)

// Publisher uploads archive artifacts to an S3-compatible bucket (AWS S3 or MinIO).
type Publisher struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// New creates a Publisher from cfg. Credentials come from the default AWS
// chain (environment, shared config, instance role).
func New(ctx context.Context, cfg config.PublishConfig, logger *slog.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = config.DefaultS3Region
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewWithClient wraps an existing S3 client.
func NewWithClient(client *s3.Client, bucket, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: logger}
}

// Key is the object key a local file is published under.
func (p *Publisher) Key(localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads the file at localPath, replacing any object with the same key.
func (p *Publisher) Publish(ctx context.Context, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for upload: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	key := p.Key(localPath)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s to s3://%s/%s: %w", localPath, p.bucket, key, err)
	}
	p.logger.Info("published file", "bucket", p.bucket, "key", key, "bytes", info.Size())
	return key, nil
}
