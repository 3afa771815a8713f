package tenantstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfgpkg "github.com/qualcode/nucleus/pkg/config"
)

// S3Backend is the production Backend, writing to an S3-compatible
// object store. It is the closest real dependency in the example pack
// to the original system's Azure Blob Storage client.
type S3Backend struct {
	client *s3.Client
}

// NewS3Backend builds an S3Backend from artifact store configuration.
// A non-empty Endpoint selects a custom (non-AWS) S3-compatible
// endpoint with path-style addressing, for local/minio deployments.
func NewS3Backend(ctx context.Context, cfg cfgpkg.ArtifactConfig) (*S3Backend, error) {
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
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3Backend{client: client}, nil
}

func (b *S3Backend) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err := b.client.PutObject(ctx, input)
	return err
}

func (b *S3Backend) Get(ctx context.Context, container, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *S3Backend) List(ctx context.Context, container, prefix string, limit int) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() && (limit <= 0 || len(names) < limit) {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			names = append(names, aws.ToString(obj.Key))
			if limit > 0 && len(names) >= limit {
				break
			}
		}
	}
	return names, nil
}

func (b *S3Backend) DeletePrefix(ctx context.Context, container, prefix string) error {
	names, err := b.List(ctx, container, prefix, 0)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(container),
			Key:    aws.String(name),
		}); err != nil {
			return err
		}
	}
	return nil
}
