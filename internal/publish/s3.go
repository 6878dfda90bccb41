// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects the bucket and, for S3-compatible services such as MinIO,
// the endpoint. Empty credentials fall back to the default AWS chain.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// S3ConfigFromEnv reads DSFETCH_S3_* variables. bucket overrides
// DSFETCH_S3_BUCKET when non-empty.
func S3ConfigFromEnv(bucket string) S3Config {
	if bucket == "" {
		bucket = os.Getenv("DSFETCH_S3_BUCKET")
	}
	return S3Config{
		Bucket:    bucket,
		Region:    os.Getenv("DSFETCH_S3_REGION"),
		Endpoint:  os.Getenv("DSFETCH_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("DSFETCH_S3_PATH_STYLE"), "true"),
	}
}

// S3Store publishes into a single bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store loads the AWS configuration and builds a client. Extra options
// are applied to the client after the ones derived from cfg.
func NewS3Store(ctx context.Context, cfg S3Config, opts ...func(*s3.Options)) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	clientOpts := []func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}
	clientOpts = append(clientOpts, opts...)
	return &S3Store{client: s3.NewFromConfig(awsCfg, clientOpts...), bucket: cfg.Bucket}, nil
}

// Put uploads r as a single PutObject request.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return err
	}
	return nil
}

// Location returns the s3:// URI of key.
func (s *S3Store) Location(key string) string {
	return "s3://" + s.bucket + "/" + key
}
