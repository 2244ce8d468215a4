package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/matzehuels/memorywall/pkg/errors"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Config configures an S3-compatible bucket (AWS S3, MinIO, R2, or
// Supabase Storage's S3 endpoint).
type S3Config struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	ForcePathStyle  bool   `toml:"force_path_style"`
	// PublicBaseURL, when set, prefixes object keys to form public URLs,
	// e.g. https://abc.supabase.co/storage/v1/object/public/wall-uploads.
	PublicBaseURL string `toml:"public_base_url"`
}

// NewS3Client builds an S3 client from cfg and the default AWS credential
// chain. Static keys in cfg take precedence.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load AWS config")
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// S3Store is a Store on an S3-compatible bucket.
type S3Store struct {
	api S3API
	cfg S3Config
}

// NewS3Store wraps api. An empty bucket name means DefaultBucket.
func NewS3Store(api S3API, cfg S3Config) *S3Store {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
	return &S3Store{api: api, cfg: cfg}
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if contentType == "" {
		contentType = ContentType(key)
	}
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.cfg.Bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "upload %s", key)
	}
	return nil
}

// PublicURL returns the URL key is served from. Without PublicBaseURL it
// assumes a public bucket: path style on custom endpoints, virtual-hosted
// style on AWS.
func (s *S3Store) PublicURL(key string) string {
	escaped := escapeKey(key)
	switch {
	case s.cfg.PublicBaseURL != "":
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + escaped
	case s.cfg.Endpoint != "":
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + escaped
	default:
		region := s.cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, region, escaped)
	}
}

// Ping checks that the bucket exists and is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "head bucket %s", s.cfg.Bucket)
	}
	return nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ Store = (*S3Store)(nil)
