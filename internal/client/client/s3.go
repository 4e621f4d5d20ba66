package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/netx"
)

// PresignExpiry is how long a presigned PUT stays valid.
const PresignExpiry = 15 * time.Minute

type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// S3Uploader uploads straight to an S3-compatible bucket through a
// presigned PUT and returns the object URL without the signature.
type S3Uploader struct {
	presign *s3.PresignClient
	bucket  string
	http    *http.Client
}

func NewS3Uploader(ctx context.Context, cfg S3Config, httpClient *http.Client) (*S3Uploader, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &S3Uploader{presign: s3.NewPresignClient(client), bucket: cfg.Bucket, http: httpClient}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, endpoint string, att models.Attachment) (string, error) {
	key := objectKey(endpoint, att)
	ct := contentType(att)

	req, err := presignPutObject(u.presign, ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		ContentType: &ct,
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", common.ErrUpload, key, err)
	}

	if err := netx.PutPresigned(ctx, u.http, req.URL, ct, att.Data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", common.ErrUpload, key, err)
	}
	return netx.StripQuery(req.URL), nil
}
