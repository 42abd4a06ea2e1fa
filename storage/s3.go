package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"lattes-dw/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of the S3 client the report store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportStore uploads validation reports to an S3-compatible bucket.
type ReportStore struct {
	client  ObjectPutter
	bucket  string
	baseURL string
}

// NewS3Client builds a client for the configured S3-compatible endpoint.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.ReportS3URL,
				SigningRegion:     cfg.ReportS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.ReportS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ReportS3Key, cfg.ReportS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewReportStore returns nil when the report settings are incomplete.
func NewReportStore(ctx context.Context, cfg *config.Config) (*ReportStore, error) {
	if !cfg.ReportUploadEnabled() {
		return nil, nil
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewReportStoreWithClient(client, cfg.ReportS3Bucket, cfg.ReportS3URL), nil
}

func NewReportStoreWithClient(client ObjectPutter, bucket, baseURL string) *ReportStore {
	return &ReportStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload stores data under key and returns the object's link.
func (s *ReportStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key), nil
}
