// Package storage copies captured screenshots to S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const ContentTypePNG = "image/png"

// Uploader stores one object and returns its s3:// URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type S3Uploader struct {
	client *s3.Client
	bucket string
}

// NewS3Uploader 使用 path-style 寻址，兼容 LocalStack/MinIO。
func NewS3Uploader(cfg aws.Config, bucket string, optFns ...func(*s3.Options)) *S3Uploader {
	optFns = append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = true
	}}, optFns...)
	return &S3Uploader{
		client: s3.NewFromConfig(cfg, optFns...),
		bucket: bucket,
	}
}

func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, u.bucket, err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}

// ScreenshotKey returns prefix/yyyy/mm/dd/<uuid>.png for t (UTC).
func ScreenshotKey(prefix string, t time.Time) string {
	prefix = strings.Trim(prefix, "/")
	return path.Join(prefix, t.UTC().Format("2006/01/02"), uuid.NewString()+".png")
}
