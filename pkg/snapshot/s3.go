package snapshot

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Sink.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Sink stores snapshots as objects in an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	sink := snapshot.NewS3Sink(s3.NewFromConfig(cfg), "my-bucket", "hookstore/")
type S3Sink struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Sink creates a sink writing to bucket. prefix is prepended to every
// key.
func NewS3Sink(client S3API, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// S3Options configures NewS3SinkFromEnv.
type S3Options struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string

	// PathStyle forces path-style addressing.
	PathStyle bool
}

// NewS3SinkFromEnv loads AWS credentials and region from the default chain
// (environment, shared config, instance role) and returns a sink.
func NewS3SinkFromEnv(ctx context.Context, opts S3Options) (*S3Sink, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewS3Sink(client, opts.Bucket, opts.Prefix), nil
}

// Put uploads data under prefix+key.
func (s *S3Sink) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// Get downloads prefix+key. A missing object returns ErrNotFound.
func (s *S3Sink) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if stderrors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// List returns the keys under prefix, without the sink's own prefix.
func (s *S3Sink) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key)[len(s.prefix):])
		}
	}
	return keys, nil
}
