package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3Store struct {
	client *s3.Client
	logger *slog.Logger
}

// NewS3 creates an Amazon S3 System. Keys take the form "bucket/path/to/key".
func NewS3(ctx context.Context, cfg *S3Config, logger *slog.Logger) (System, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &s3Store{
		client: client,
		logger: logger.With("system", "storage", "backend", SchemeS3),
	}, nil
}

func (s *s3Store) Open(ctx context.Context, key string) (*Object, error) {
	bucket, name, err := splitKey(key)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, mapS3Error(key, err)
	}

	obj := &Object{
		ReadCloser:  out.Body,
		Name:        baseName(name),
		Size:        -1,
		ContentType: aws.ToString(out.ContentType),
	}
	if out.ContentLength != nil {
		obj.Size = *out.ContentLength
	}

	s.logger.Info("object opened", "bucket", bucket, "key", name, "size", obj.Size)
	return obj, nil
}

func mapS3Error(key string, err error) error {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return fmt.Errorf("s3 object %s: %w", key, ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NotFound":
			return fmt.Errorf("s3 object %s: %w", key, ErrNotFound)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("s3 object %s: %w", key, ErrForbidden)
		}
	}

	return fmt.Errorf("get s3 object %s: %w", key, err)
}
