package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	mcreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/netx"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioUploader uploads to a MinIO bucket through a presigned PUT.
type MinioUploader struct {
	client *minio.Client
	bucket string
	http   *http.Client
}

func NewMinioUploader(cfg MinioConfig, httpClient *http.Client) (*MinioUploader, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  mcreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &MinioUploader{client: mc, bucket: cfg.Bucket, http: httpClient}, nil
}

func (u *MinioUploader) Upload(ctx context.Context, endpoint string, att models.Attachment) (string, error) {
	key := objectKey(endpoint, att)

	presigned, err := u.client.PresignedPutObject(ctx, u.bucket, key, PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate presigned URL: %v", common.ErrUpload, err)
	}

	if err := netx.PutPresigned(ctx, u.http, presigned.String(), contentType(att), att.Data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", common.ErrUpload, key, err)
	}
	return netx.StripQuery(presigned.String()), nil
}
