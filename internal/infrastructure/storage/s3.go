package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appfeed "github.com/feedsync/backend/internal/application/feed"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ appfeed.FeedPublisher = (*S3Publisher)(nil)

// S3Publisher uploads the feed to S3-compatible object storage (AWS S3, MinIO, RustFS).
type S3Publisher struct {
	client *s3.Client
	bucket string
	key    string
	logger *zap.Logger
}

// S3Option configures an S3Publisher
type S3Option func(*S3Publisher)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3Option {
	return func(p *S3Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewS3Publisher creates a publisher writing <prefix>/<fileName> into the bucket.
// Without an access key the default AWS credential chain is used.
func NewS3Publisher(cfg config.StorageConfig, fileName string, opts ...S3Option) (*S3Publisher, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	if fileName == "" {
		return nil, errors.New("storage: file name is required")
	}

	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		// some S3-compatible stores reject flexible checksum headers
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	p := &S3Publisher{
		client: client,
		bucket: cfg.S3Bucket,
		key:    path.Join(strings.Trim(cfg.S3Prefix, "/"), fileName),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Key returns the object key of the feed
func (p *S3Publisher) Key() string {
	return p.key
}

// EnsureBucket creates the bucket if it doesn't exist
func (p *S3Publisher) EnsureBucket(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("storage: head bucket %s: %w", p.bucket, err)
	}

	p.logger.Info("Creating feed bucket", zap.String("bucket", p.bucket))
	_, err = p.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(p.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("storage: create bucket %s: %w", p.bucket, err)
	}
	return nil
}

// Publish uploads the document, replacing the previous object
func (p *S3Publisher) Publish(ctx context.Context, doc []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(p.key),
		Body:          bytes.NewReader(doc),
		ContentLength: aws.Int64(int64(len(doc))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("no-cache"),
	})
	if err != nil {
		return fmt.Errorf("storage: put s3://%s/%s: %w", p.bucket, p.key, err)
	}
	p.logger.Info("Feed published", zap.String("bucket", p.bucket), zap.String("key", p.key), zap.Int("bytes", len(doc)))
	return nil
}
