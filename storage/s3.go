package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"trendzn-restful/config"
)

// s3API is the subset of the S3 client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps images in an S3 (or S3-compatible) bucket.
type S3Store struct {
	client  s3API
	bucket  string
	prefix  string
	baseURL string
}

var _ ImageStore = (*S3Store)(nil)

// NewS3Store builds a client from the storage configuration. Static keys are
// used when configured, otherwise the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3.Region)}
	if cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client s3API, cfg config.StorageConfig) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  cfg.S3.Bucket,
		prefix:  "uploads/",
		baseURL: s3BaseURL(cfg),
	}
}

func s3BaseURL(cfg config.StorageConfig) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.S3.Endpoint != "":
		return strings.TrimRight(cfg.S3.Endpoint, "/") + "/" + cfg.S3.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3.Bucket, cfg.S3.Region)
	}
}

func (s *S3Store) Save(ctx context.Context, img *Image) (*Object, error) {
	key := s.prefix + img.Name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        img.Reader(),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to s3: %w", err)
	}
	return &Object{Key: key, URL: s.baseURL + "/" + key}, nil
}

// Delete is idempotent: S3 reports success for keys that do not exist.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
