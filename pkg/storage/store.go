// Package storage persists run artifacts to a local directory or an S3 prefix.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// BlobStore is a flat key/value artifact store.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ConfigLoader supplies AWS configuration for S3 targets.
type ConfigLoader func(ctx context.Context) (aws.Config, error)

// Open returns the store for target: "s3://bucket/prefix" or a local directory.
func Open(ctx context.Context, target string, load ConfigLoader) (BlobStore, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("empty storage target")
	}
	if !strings.HasPrefix(target, "s3://") {
		return NewLocalStore(target), nil
	}

	bucket, prefix, err := ParseS3URL(target)
	if err != nil {
		return nil, err
	}
	if load == nil {
		return nil, fmt.Errorf("no aws config available for %s", target)
	}
	cfg, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for %s: %w", target, err)
	}
	s := NewS3Store(cfg, bucket)
	s.Prefix = prefix
	return s, nil
}

// ParseS3URL splits "s3://bucket/prefix" into its parts.
func ParseS3URL(raw string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(raw, "s3://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid s3 url %q: missing bucket", raw)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}
