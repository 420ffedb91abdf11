package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the part of the S3 client the store needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3 stores files as objects named like the local layout, under Prefix.
type S3 struct {
	client S3API
	bucket string
	prefix string
	suffix func() string
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(cfg.Region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	var s3Opts []func(*s3.Options)
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

func NewS3(client S3API, cfg S3Config) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix == "" {
		prefix = DefaultDir
	}
	return &S3{client: client, bucket: bucket, prefix: prefix, suffix: newSuffix}, nil
}

// Save uploads data with If-None-Match so an existing key is never replaced.
// S3 publishes an object only once the whole body is received.
func (s *S3) Save(ctx context.Context, data []byte, originalName string, when time.Time) (StoredFile, error) {
	base := FileName(originalName, when)
	name := base
	for attempt := 1; ; attempt++ {
		key := path.Join(s.prefix, name)
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String(contentTypeFor(name)),
			IfNoneMatch:   aws.String("*"),
		})
		location := "s3://" + s.bucket + "/" + key
		if err == nil {
			return StoredFile{Path: location, SizeBytes: int64(len(data)), SavedAt: when}, nil
		}
		if !isPreconditionFailed(err) || attempt >= maxNameAttempts {
			return StoredFile{}, &StorageError{Op: "put", Path: location, Err: err}
		}
		name = disambiguate(base, s.suffix())
	}
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	default:
		return false
	}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
