package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithy "github.com/aws/smithy-go"

	"university-query-engine/internal/apperr"
	qconfig "university-query-engine/internal/config"
)

const component = "objectstore"

// S3Store implements Store over AWS S3 or an S3-compatible backend (MinIO).
type S3Store struct {
	client       *s3.Client
	presignC     *s3.PresignClient
	bucket       string
	sseMode      string
	sseKMSKeyID  string
	presignTTL   time.Duration
}

// NewS3Store builds an S3Store from configuration.
func NewS3Store(ctx context.Context, cfg qconfig.ObjectStoreConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, apperr.Newf(apperr.InvalidInput, component, "bucket is required")
	}

	awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("load aws config: %w", err))
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	client := s3.NewFromConfig(awsCfg, s3Opts...)

	ttl := time.Duration(cfg.PresignTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Store{
		client:      client,
		presignC:    s3.NewPresignClient(client),
		bucket:      cfg.Bucket,
		sseMode:     cfg.SSEMode,
		sseKMSKeyID: cfg.SSEKMSKeyID,
		presignTTL:  ttl,
	}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, ObjectAttrs, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, ObjectAttrs{}, classifyS3Error(err)
	}
	attrs := ObjectAttrs{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
	}
	return out.Body, attrs, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, component, fmt.Errorf("read content: %w", err))
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(string(data)),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	switch s.sseMode {
	case "aes256":
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	case "aws:kms":
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		if s.sseKMSKeyID != "" {
			input.SSEKMSKeyId = aws.String(s.sseKMSKeyID)
		}
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return "", classifyS3Error(err)
	}
	return aws.ToString(out.ETag), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return classifyS3Error(err)
	}
	return nil
}

func (s *S3Store) Head(ctx context.Context, key string) (ObjectAttrs, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return ObjectAttrs{}, classifyS3Error(err)
	}
	return ObjectAttrs{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
	}, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Head(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) || apperr.Is(err, apperr.NotFound) {
		return false, nil
	}
	return false, err
}

// Presign returns a time-limited GET URL, used to serve Artifacts directly
// from the object store without proxying bytes through the engine.
func (s *S3Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.presignTTL
	}
	req, err := s.presignC.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", apperr.Wrap(apperr.DependencyUnavailable, component, fmt.Errorf("presign: %w", err))
	}
	return req.URL, nil
}

func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return classifyS3Error(err)
	}
	return nil
}

func classifyS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return apperr.Wrap(apperr.NotFound, component, ErrNotFound)
		case "AccessDenied":
			return apperr.Wrap(apperr.InvalidInput, component, ErrAccessDenied)
		case "NoSuchBucket":
			return apperr.Wrap(apperr.NotFound, component, ErrBucketMissing)
		}
	}
	return apperr.Wrap(apperr.DependencyUnavailable, component, err)
}
